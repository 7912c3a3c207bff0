package core

import (
	"regexp"
	"strings"
)

// Mood labels. MoodVeryLow flags self-harm indicators; it is surfaced as a
// distinct category so an external safety layer can escalate, and must stay
// first in the rule table.
const (
	MoodVeryLow  = "very_low"
	MoodStressed = "stressed"
	MoodSad      = "sad"
	MoodTired    = "tired"
	MoodHappy    = "happy"
	MoodNeutral  = "neutral"
)

// Intent labels.
const (
	IntentStudy = "study"
	IntentChat  = "chat"
	IntentMixed = "mixed"
)

// MoodRule pairs a pattern with the mood it indicates.
type MoodRule struct {
	Pattern *regexp.Regexp
	Mood    string
}

// MoodRules is evaluated in order against the lowercased message; the first
// match wins, so rule order is part of the contract.
var MoodRules = []MoodRule{
	{regexp.MustCompile(`suicid|kill myself|end it`), MoodVeryLow},
	{regexp.MustCompile(`stressed|overwhelmed|panic|anxious|pressure|burnt out`), MoodStressed},
	{regexp.MustCompile(`sad|down|depressed|cry|hurt|lonely|not ok`), MoodSad},
	{regexp.MustCompile(`tired|exhausted|sleepy|no energy|fatigued`), MoodTired},
	{regexp.MustCompile(`not good|feeling bad|bad day|i'm bad|i am bad|fed up|done with`), MoodSad},
	{regexp.MustCompile(`happy|great|awesome|good day|excited|proud|finally did it`), MoodHappy},
}

// DetectMood classifies the message into one mood label. Pure pattern
// matching; unmatched input falls back to neutral, never an error.
func DetectMood(message string) string {
	t := strings.ToLower(message)
	for _, rule := range MoodRules {
		if rule.Pattern.MatchString(t) {
			return rule.Mood
		}
	}
	return MoodNeutral
}

var (
	studySignal = regexp.MustCompile(`what is|explain|define|difference between|how does|advantages|disadvantages|deadlock|os |operating system|devops|architecture|algorithm|data structure|time complexity|space complexity|lecture|slide|topic|unit|mcq|past paper|exam question`)

	emotionSignal = regexp.MustCompile(`stressed|overwhelmed|sad|down|tired|burnt out|panic|anxious|not good|feeling bad|lonely`)
)

// DetectIntent combines two independent passes over the message: one for
// study signals, one for emotional signals. Both firing yields mixed.
// The result is an internal prompt hint, never echoed to the user.
func DetectIntent(message string) string {
	t := strings.ToLower(message)
	study := studySignal.MatchString(t)
	emotion := emotionSignal.MatchString(t)

	switch {
	case study && emotion:
		return IntentMixed
	case study:
		return IntentStudy
	default:
		return IntentChat
	}
}
