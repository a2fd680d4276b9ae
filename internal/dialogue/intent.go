package dialogue

import "strings"

// Intent is the coarse category a user utterance falls into.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentSchedule     Intent = "schedule"
	IntentModify       Intent = "modify"
	IntentConfirmation Intent = "confirmation"
	IntentNegative     Intent = "negative"
	IntentGeneral      Intent = "general"
	IntentEmpty        Intent = "empty"
)

// Entities are the fragments a classifier managed to pull out of the text.
type Entities struct {
	Specialty  string
	DatePhrase string
	TimePhrase string
}

// Classification is the classifier's full output for one utterance.
type Classification struct {
	Intent   Intent
	Entities Entities
}

// Classifier maps free text to an intent and extracted entities. The default
// implementation is keyword-based; a model-backed classifier can be swapped
// in without touching the dialogue engine.
type Classifier interface {
	Classify(text string) Classification
}

var (
	modifyKeywords   = []string{"cancel", "reschedule", "modify", "move my", "change my", "check my"}
	scheduleKeywords = []string{"schedule", "book", "appointment", "need to see", "see a doctor"}
	greetingKeywords = []string{"hello", "hi", "hey", "help", "start", "good morning", "good afternoon"}
	negativeKeywords = []string{"no", "nope", "nothing", "that's all", "thats all", "bye", "goodbye", "thanks", "thank you", "all set"}
	positiveKeywords = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "correct", "sounds good"}

	dateKeywords = []string{"today", "tomorrow", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	timeKeywords = []string{"morning", "afternoon", "evening", "noon"}
)

// KeywordClassifier is the deterministic reference classifier. Modify beats
// schedule so "cancel my appointment" never reads as a booking request.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (c *KeywordClassifier) Classify(text string) Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Classification{Intent: IntentEmpty}
	}

	lower := strings.ToLower(trimmed)
	cls := Classification{Intent: IntentGeneral, Entities: extractEntities(lower)}

	switch {
	case containsAny(lower, modifyKeywords):
		cls.Intent = IntentModify
	case containsAny(lower, scheduleKeywords):
		cls.Intent = IntentSchedule
	case containsWord(lower, greetingKeywords):
		cls.Intent = IntentGreeting
	case matchesShort(lower, negativeKeywords):
		cls.Intent = IntentNegative
	case matchesShort(lower, positiveKeywords):
		cls.Intent = IntentConfirmation
	}

	return cls
}

func extractEntities(lower string) Entities {
	var ent Entities

	if spec := detectSpecialty(lower); spec != "" {
		ent.Specialty = spec
	}
	for _, kw := range dateKeywords {
		if strings.Contains(lower, kw) {
			ent.DatePhrase = kw
			if strings.Contains(lower, "next "+kw) {
				ent.DatePhrase = "next " + kw
			}
			break
		}
	}
	for _, kw := range timeKeywords {
		if strings.Contains(lower, kw) {
			ent.TimePhrase = kw
			break
		}
	}

	return ent
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// containsWord matches single-word keywords against whole words only, so
// "hi" inside "this is" does not read as a greeting. Multi-word keywords
// still match as phrases.
func containsWord(lower string, keywords []string) bool {
	words := strings.Fields(lower)
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?")
	}
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// matchesShort matches confirmation/negative words only against short
// utterances, so "no" inside "Nora Nolan" does not read as a refusal.
func matchesShort(lower string, keywords []string) bool {
	words := strings.Fields(strings.Trim(lower, ".,!?"))
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	for _, kw := range keywords {
		if lower == kw || words[0] == kw {
			return true
		}
	}
	return false
}
