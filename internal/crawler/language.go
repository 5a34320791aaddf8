package crawler

import "strings"

// Stopword lists for the languages the advisor commonly indexes. Detection
// stays intentionally coarse: retrieval works on the content's native
// language and only the language TAG matters downstream (prompt assembly).
var stopwords = map[string][]string{
	"en": {"the", "and", "for", "with", "that", "this", "are", "you", "from", "have"},
	"de": {"der", "die", "das", "und", "für", "mit", "nicht", "sie", "ist", "von"},
	"fr": {"le", "la", "les", "et", "des", "pour", "dans", "est", "vous", "une"},
	"es": {"el", "la", "los", "las", "de", "que", "para", "con", "una", "es"},
	"it": {"il", "la", "di", "che", "per", "con", "una", "sono", "del", "non"},
	"pt": {"o", "a", "os", "as", "de", "que", "para", "com", "uma", "não"},
	"nl": {"de", "het", "een", "en", "van", "voor", "met", "niet", "zijn", "aan"},
	"pl": {"i", "w", "na", "z", "do", "nie", "jest", "się", "oraz", "dla"},
	"cs": {"a", "v", "na", "se", "je", "pro", "nebo", "které", "jsou", "tak"},
	"sk": {"a", "v", "na", "sa", "je", "pre", "alebo", "ktoré", "sú", "ako"},
	"uk": {"і", "в", "на", "що", "не", "для", "або", "це", "як", "та"},
	"ru": {"и", "в", "на", "что", "не", "для", "или", "это", "как", "по"},
}

// DetectLanguage guesses the language code of a text by stopword frequency.
// Returns "en" when nothing matches, never an empty string.
func DetectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "en"
	}
	// Cap the sample; pages repeat their stopword profile fast.
	if len(words) > 500 {
		words = words[:500]
	}

	seen := make(map[string]int, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]\"'«»")
		if w != "" {
			seen[w]++
		}
	}

	best := "en"
	bestScore := 0
	for lang, sw := range stopwords {
		score := 0
		for _, w := range sw {
			score += seen[w]
		}
		if score > bestScore {
			best = lang
			bestScore = score
		}
	}
	return best
}
