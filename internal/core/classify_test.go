package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMood(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"self harm indicator", "sometimes I want to end it", MoodVeryLow},
		{"self harm beats sadness", "I'm so sad I want to end it all", MoodVeryLow},
		{"stressed", "I'm totally overwhelmed by this week", MoodStressed},
		{"stressed beats sad by rule order", "stressed and feeling down", MoodStressed},
		{"sad", "feeling pretty down today", MoodSad},
		{"not good phrasing", "honestly it's not good", MoodSad},
		{"bad day phrasing", "such a bad day", MoodSad},
		{"tired", "I'm exhausted after the lab", MoodTired},
		{"happy", "finally did it, so proud!", MoodHappy},
		{"neutral", "can you explain B-trees", MoodNeutral},
		{"case insensitive", "SO STRESSED RIGHT NOW", MoodStressed},
		{"empty", "", MoodNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMood(tt.message))
		})
	}
}

func TestMoodRules_SelfHarmFirst(t *testing.T) {
	// The escalation category must be checked before everything else.
	assert.Equal(t, MoodVeryLow, MoodRules[0].Mood)
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"study question", "what is a deadlock in an operating system?", IntentStudy},
		{"study keyword", "explain time complexity of quicksort", IntentStudy},
		{"emotional only", "I'm feeling really lonely tonight", IntentChat},
		{"both signals", "I'm so stressed, can you explain deadlock again?", IntentMixed},
		{"small talk", "hey, how are you", IntentChat},
		{"empty", "", IntentChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIntent(tt.message))
		})
	}
}
