package crawler

import "strings"

// ClassifyContentType tags a page by what institution content it carries,
// judged from URL path and title keywords. Unknown pages get "general page".
func ClassifyContentType(pageURL, title string) string {
	haystack := strings.ToLower(pageURL + " " + title)

	switch {
	case containsAny(haystack, "admission", "apply", "application", "enroll", "zulassung", "inscription"):
		return "admissions page"
	case containsAny(haystack, "program", "course", "studium", "study", "degree", "bachelor", "master", "curriculum"):
		return "program page"
	case containsAny(haystack, "tuition", "fee", "cost", "scholarship", "stipend", "financial"):
		return "fees page"
	case containsAny(haystack, "housing", "accommodation", "dormitor", "residence", "wohnen", "apartment", "rent"):
		return "housing page"
	case containsAny(haystack, "job", "career", "vacanc", "employment", "stellen", "recruit"):
		return "jobs page"
	case containsAny(haystack, "contact", "kontakt", "impressum", "about", "faculty", "staff"):
		return "contact page"
	case containsAny(haystack, "deadline", "calendar", "termin", "date", "schedule"):
		return "deadlines page"
	default:
		return "general page"
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
