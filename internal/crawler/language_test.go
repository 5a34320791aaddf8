package crawler

import "testing"

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"The university offers programs for students that have completed secondary school and are ready for the next step.", "en"},
		{"Die Universität bietet Studiengänge für Studierende, die mit der Schule fertig sind und sich für ein Studium interessieren.", "de"},
		{"L'université propose des programmes pour les étudiants qui souhaitent poursuivre des études dans notre établissement.", "fr"},
		{"La universidad ofrece programas para los estudiantes que desean continuar con sus estudios en una institución.", "es"},
	}

	for _, c := range cases {
		if got := DetectLanguage(c.text); got != c.want {
			t.Errorf("DetectLanguage(%q...) = %q, want %q", c.text[:20], got, c.want)
		}
	}
}

func TestDetectLanguageDefaultsToEnglish(t *testing.T) {
	if got := DetectLanguage(""); got != "en" {
		t.Errorf("empty text: got %q, want en", got)
	}
	if got := DetectLanguage("xyzzy plugh 12345"); got != "en" {
		t.Errorf("no stopwords: got %q, want en", got)
	}
}
