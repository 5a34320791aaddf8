package chat

import (
	"fmt"
	"strings"

	"github.com/dianabombi/student-advisor-sub002/internal/ai"
	"github.com/dianabombi/student-advisor-sub002/internal/retrieval"
	"github.com/dianabombi/student-advisor-sub002/models"
)

// languageNames maps supported answer-language codes to the name used in
// the system instruction. Unknown codes fall through to English.
var languageNames = map[string]string{
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"cs": "Czech",
	"sk": "Slovak",
	"uk": "Ukrainian",
	"ru": "Russian",
}

// apologies are the canned provider-failure replies, one per supported
// language. The end user never sees a raw provider error.
var apologies = map[string]string{
	"en": "I'm sorry, I can't answer right now. Please try again in a moment.",
	"de": "Es tut mir leid, ich kann gerade nicht antworten. Bitte versuchen Sie es gleich noch einmal.",
	"fr": "Je suis désolé, je ne peux pas répondre pour le moment. Veuillez réessayer dans un instant.",
	"es": "Lo siento, no puedo responder en este momento. Por favor, inténtelo de nuevo en un momento.",
	"it": "Mi dispiace, al momento non posso rispondere. Riprova tra un attimo.",
	"pt": "Desculpe, não consigo responder agora. Tente novamente em instantes.",
	"nl": "Het spijt me, ik kan nu niet antwoorden. Probeer het zo weer.",
	"pl": "Przepraszam, nie mogę teraz odpowiedzieć. Spróbuj ponownie za chwilę.",
	"cs": "Omlouvám se, momentálně nemohu odpovědět. Zkuste to prosím za chvíli znovu.",
	"sk": "Ospravedlňujem sa, momentálne neviem odpovedať. Skúste to prosím o chvíľu znova.",
	"uk": "Вибачте, зараз я не можу відповісти. Будь ласка, спробуйте ще раз за мить.",
	"ru": "Извините, сейчас я не могу ответить. Пожалуйста, попробуйте снова через мгновение.",
}

// Apology returns the canned fallback reply for a language code, defaulting
// to English for unknown codes.
func Apology(lang string) string {
	if msg, ok := apologies[normalizeLang(lang)]; ok {
		return msg
	}
	return apologies["en"]
}

// LanguageName resolves a code to its instruction name, defaulting to English.
func LanguageName(lang string) string {
	if name, ok := languageNames[normalizeLang(lang)]; ok {
		return name
	}
	return languageNames["en"]
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// BuildPrompt assembles the single completion prompt: system instruction,
// tagged and truncated passages, verbatim history, then the question.
func BuildPrompt(query string, passages []retrieval.ScoredItem, history []models.ChatTurn, outputLanguage string, passageBudget int) string {
	var b strings.Builder

	langName := LanguageName(outputLanguage)
	b.WriteString("You are an advisor for an institution, answering questions using only the website excerpts below.\n")
	fmt.Fprintf(&b, "Answer in %s only, translating the excerpts as needed; they may be in other languages.\n", langName)
	b.WriteString("If the excerpts do not answer the question, say plainly that you don't have that information. Do not invent facts.\n")

	if len(passages) > 0 {
		b.WriteString("\nWebsite excerpts:\n")
		for i, p := range passages {
			text := ai.TruncateText(strings.TrimSpace(p.Item.Body), passageBudget)
			lang := p.Item.Language
			if lang == "" {
				lang = "unknown"
			}
			fmt.Fprintf(&b, "\n[%d] (%s, %s) %s\n%s\n", i+1, lang, p.Item.SourceURL, p.Item.Title, text)
		}
	} else {
		b.WriteString("\nNo website excerpts are available for this institution yet.\n")
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
	}

	fmt.Fprintf(&b, "\nuser: %s\nassistant:", query)
	return b.String()
}
