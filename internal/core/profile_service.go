package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/acebuddy/studybuddy/internal/store"
)

const (
	motivationMin = 1
	motivationMax = 5

	maxUpcomingExams = 10
	examNoteMaxLen   = 120

	// How long a profile goes without a check-in before the next message
	// refreshes the timestamp.
	checkInInterval = 18 * time.Hour
)

var examSubjectPattern = regexp.MustCompile(`(?i)exam\s+(on|for)\s+([a-zA-Z0-9 _-]{2,40})`)

// ProfileUpdate captures what one message did to the profile, for logging
// and response payloads.
type ProfileUpdate struct {
	Mood   string
	Intent string
}

// ApplyMessage runs the mood and intent classifiers over one user message and
// mutates the profile in place: motivation transitions, exam mentions and the
// check-in timestamp. Pure heuristics; it cannot fail.
func ApplyMessage(profile *store.StudentProfile, message string, now time.Time) ProfileUpdate {
	mood := DetectMood(message)
	intent := DetectIntent(message)

	prevMood := profile.LastMood
	if prevMood == "" {
		prevMood = MoodNeutral
	}
	profile.LastMood = mood

	// Motivation only moves on a transition into a new mood, so a run of
	// sad messages costs one point, not one per message.
	switch {
	case isLowMood(mood) && mood != prevMood:
		if profile.MotivationLevel > motivationMin {
			profile.MotivationLevel--
		}
	case mood == MoodHappy && mood != prevMood:
		if profile.MotivationLevel < motivationMax {
			profile.MotivationLevel++
		}
	}

	if exam := ExtractExamMention(message, now); exam != nil {
		recordExam(profile, *exam)
	}

	if needsCheckIn(profile, now) {
		t := now
		profile.LastCheckInAt = &t
	}

	return ProfileUpdate{Mood: mood, Intent: intent}
}

func isLowMood(mood string) bool {
	return mood == MoodSad || mood == MoodStressed || mood == MoodTired
}

// ExtractExamMention pulls an upcoming-exam reference out of a message.
// Subject comes from an "exam on/for X" pattern; the date only from literal
// "tomorrow"/"today" tokens. Returns nil when no trigger word is present.
func ExtractExamMention(message string, now time.Time) *store.ExamMention {
	t := strings.ToLower(message)
	if !strings.Contains(t, "exam") && !strings.Contains(t, "test") && !strings.Contains(t, "quiz") {
		return nil
	}

	var subject string
	if m := examSubjectPattern.FindStringSubmatch(message); m != nil {
		subject = strings.TrimSpace(m[2])
	}

	var date *time.Time
	if strings.Contains(t, "tomorrow") {
		d := now.Add(24 * time.Hour)
		date = &d
	} else if strings.Contains(t, "today") {
		d := now
		date = &d
	}

	note := message
	if len(note) > examNoteMaxLen {
		note = note[:examNoteMaxLen]
	}

	return &store.ExamMention{Subject: subject, Date: date, Note: note}
}

// recordExam prepends the mention unless an entry with the identical note
// already exists, then caps the list to the most recent entries.
func recordExam(profile *store.StudentProfile, exam store.ExamMention) {
	for _, existing := range profile.UpcomingExams {
		if existing.Note == exam.Note {
			return
		}
	}
	profile.UpcomingExams = append([]store.ExamMention{exam}, profile.UpcomingExams...)
	if len(profile.UpcomingExams) > maxUpcomingExams {
		profile.UpcomingExams = profile.UpcomingExams[:maxUpcomingExams]
	}
}

func needsCheckIn(profile *store.StudentProfile, now time.Time) bool {
	if profile.LastCheckInAt == nil {
		return true
	}
	return now.Sub(*profile.LastCheckInAt) > checkInInterval
}
