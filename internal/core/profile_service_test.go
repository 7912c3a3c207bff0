package core

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acebuddy/studybuddy/internal/store"
)

func newProfile() *store.StudentProfile {
	return &store.StudentProfile{
		UserID:          1,
		LastMood:        MoodNeutral,
		MotivationLevel: 3,
	}
}

func TestApplyMessage_MoodTransitionLowersMotivation(t *testing.T) {
	profile := newProfile()
	now := time.Now()

	update := ApplyMessage(profile, "I'm feeling really sad today", now)
	assert.Equal(t, MoodSad, update.Mood)
	assert.Equal(t, 2, profile.MotivationLevel)
	assert.Equal(t, MoodSad, profile.LastMood)

	// Repeated mood must not double-penalize.
	update = ApplyMessage(profile, "still sad about it", now)
	assert.Equal(t, MoodSad, update.Mood)
	assert.Equal(t, 2, profile.MotivationLevel)
}

func TestApplyMessage_HappyTransitionRaisesMotivation(t *testing.T) {
	profile := newProfile()
	profile.LastMood = MoodSad
	profile.MotivationLevel = 2

	ApplyMessage(profile, "finally did it, feeling awesome!", time.Now())
	assert.Equal(t, 3, profile.MotivationLevel)
}

func TestApplyMessage_NeutralLeavesMotivation(t *testing.T) {
	profile := newProfile()
	ApplyMessage(profile, "can you look at my schedule", time.Now())
	assert.Equal(t, 3, profile.MotivationLevel)
	assert.Equal(t, MoodNeutral, profile.LastMood)
}

func TestApplyMessage_MotivationStaysInBounds(t *testing.T) {
	profile := newProfile()
	now := time.Now()

	// Alternate between low moods so every message is a fresh transition.
	lowMoods := []string{"I'm so sad", "so stressed out", "completely exhausted"}
	for i := 0; i < 30; i++ {
		ApplyMessage(profile, lowMoods[i%len(lowMoods)], now)
		assert.GreaterOrEqual(t, profile.MotivationLevel, 1)
		assert.LessOrEqual(t, profile.MotivationLevel, 5)
	}
	assert.Equal(t, 1, profile.MotivationLevel)

	for i := 0; i < 30; i++ {
		ApplyMessage(profile, "what a great day, so happy", now)
		ApplyMessage(profile, "hmm okay neutral thing", now)
		assert.GreaterOrEqual(t, profile.MotivationLevel, 1)
		assert.LessOrEqual(t, profile.MotivationLevel, 5)
	}
}

func TestExtractExamMention(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("no trigger word", func(t *testing.T) {
		assert.Nil(t, ExtractExamMention("let's study algorithms", now))
	})

	t.Run("subject and tomorrow", func(t *testing.T) {
		exam := ExtractExamMention("I have an exam on Operating Systems tomorrow", now)
		require.NotNil(t, exam)
		assert.Equal(t, "Operating Systems tomorrow", exam.Subject)
		require.NotNil(t, exam.Date)
		assert.Equal(t, now.Add(24*time.Hour), *exam.Date)
	})

	t.Run("exam for variant", func(t *testing.T) {
		exam := ExtractExamMention("stressed about my exam for DevOps", now)
		require.NotNil(t, exam)
		assert.Equal(t, "DevOps", exam.Subject)
		assert.Nil(t, exam.Date)
	})

	t.Run("today", func(t *testing.T) {
		exam := ExtractExamMention("quiz today, wish me luck", now)
		require.NotNil(t, exam)
		assert.Equal(t, "", exam.Subject)
		require.NotNil(t, exam.Date)
		assert.Equal(t, now, *exam.Date)
	})

	t.Run("note truncated", func(t *testing.T) {
		long := "test " + strings.Repeat("x", 300)
		exam := ExtractExamMention(long, now)
		require.NotNil(t, exam)
		assert.Len(t, exam.Note, 120)
	})
}

func TestApplyMessage_ExamDeduplicatedByNote(t *testing.T) {
	profile := newProfile()
	now := time.Now()

	ApplyMessage(profile, "I have an exam on Databases tomorrow", now)
	require.Len(t, profile.UpcomingExams, 1)

	// The same message again must not create a second entry.
	ApplyMessage(profile, "I have an exam on Databases tomorrow", now)
	assert.Len(t, profile.UpcomingExams, 1)
}

func TestApplyMessage_ExamListCappedAndNewestFirst(t *testing.T) {
	profile := newProfile()
	now := time.Now()

	for i := 0; i < 15; i++ {
		ApplyMessage(profile, fmt.Sprintf("exam on Subject%02d next week", i), now)
	}

	require.Len(t, profile.UpcomingExams, 10)
	assert.Equal(t, "Subject14 next week", profile.UpcomingExams[0].Subject)
	assert.Equal(t, "Subject05 next week", profile.UpcomingExams[9].Subject)
}

func TestApplyMessage_CheckInRefresh(t *testing.T) {
	profile := newProfile()
	now := time.Now()

	// Never checked in: first message sets the timestamp.
	ApplyMessage(profile, "hello", now)
	require.NotNil(t, profile.LastCheckInAt)
	assert.Equal(t, now, *profile.LastCheckInAt)

	// Within the window: unchanged.
	later := now.Add(2 * time.Hour)
	ApplyMessage(profile, "hello again", later)
	assert.Equal(t, now, *profile.LastCheckInAt)

	// Past 18 hours: refreshed.
	muchLater := now.Add(19 * time.Hour)
	ApplyMessage(profile, "hey", muchLater)
	assert.Equal(t, muchLater, *profile.LastCheckInAt)
}
