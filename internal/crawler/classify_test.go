package crawler

import "testing"

func TestClassifyContentType(t *testing.T) {
	cases := []struct {
		url   string
		title string
		want  string
	}{
		{"https://uni.example/admissions", "How to apply", "admissions page"},
		{"https://uni.example/studium/bachelor", "Bachelor programs", "program page"},
		{"https://uni.example/tuition", "Fees and scholarships", "fees page"},
		{"https://agency.example/wohnen", "Student housing", "housing page"},
		{"https://agency.example/stellen", "Open positions", "jobs page"},
		{"https://uni.example/kontakt", "Impressum", "contact page"},
		{"https://uni.example/news/2026", "Campus news", "general page"},
	}

	for _, c := range cases {
		if got := ClassifyContentType(c.url, c.title); got != c.want {
			t.Errorf("ClassifyContentType(%q, %q) = %q, want %q", c.url, c.title, got, c.want)
		}
	}
}

func TestClassifyPrefersAdmissionsOverProgram(t *testing.T) {
	// A page matching several categories takes the first match.
	got := ClassifyContentType("https://uni.example/apply", "Apply for the Master program")
	if got != "admissions page" {
		t.Errorf("got %q, want admissions page", got)
	}
}
