package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntents(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"Hello", IntentGreeting},
		{"hi there", IntentGreeting},
		{"Good morning", IntentGreeting},
		{"I need to schedule an appointment", IntentSchedule},
		{"can I book a visit", IntentSchedule},
		{"I need to see a doctor", IntentSchedule},
		{"I want to cancel my appointment", IntentModify},
		{"please reschedule my visit", IntentModify},
		{"can you move my appointment", IntentModify},
		{"yes", IntentConfirmation},
		{"sounds good", IntentConfirmation},
		{"no thanks", IntentNegative},
		{"that's all", IntentNegative},
		{"", IntentEmpty},
		{"   ", IntentEmpty},
		{"the weather is nice", IntentGeneral},
		// A name containing "no" is not a refusal.
		{"Nora Nolan Fitzgerald Vanderbilt Smith", IntentGeneral},
		// "this is" must not read as a greeting via "hi".
		{"This is Jane Doe", IntentGeneral},
	}

	c := NewKeywordClassifier()
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.text).Intent)
		})
	}
}

func TestModifyBeatsSchedule(t *testing.T) {
	c := NewKeywordClassifier()
	// "appointment" is a schedule keyword, but cancel wins.
	got := c.Classify("I want to cancel my appointment")
	assert.Equal(t, IntentModify, got.Intent)
}

func TestClassifyExtractsEntities(t *testing.T) {
	c := NewKeywordClassifier()

	got := c.Classify("I need to see a cardiologist next friday morning")
	assert.Equal(t, "cardiology", got.Entities.Specialty)
	assert.Equal(t, "next friday", got.Entities.DatePhrase)
	assert.Equal(t, "morning", got.Entities.TimePhrase)

	got = c.Classify("book me for tomorrow afternoon")
	assert.Equal(t, "tomorrow", got.Entities.DatePhrase)
	assert.Equal(t, "afternoon", got.Entities.TimePhrase)
	assert.Empty(t, got.Entities.Specialty)
}
