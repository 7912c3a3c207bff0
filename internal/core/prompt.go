package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/acebuddy/studybuddy/internal/store"
)

// How many past turns ride along with each new message.
const HistoryWindow = 14

// FallbackReply is returned and persisted when reply generation fails.
const FallbackReply = "Sorry, I got stuck. Can you say that again?"

const followUpQuestion = "What part feels most confusing right now?"

// shownExams caps how many upcoming exams the prompt lists.
const shownExams = 3

// BuildSystemPrompt assembles the buddy persona, a summary of the student's
// profile state, an internal-only intent hint and the retrieved study context
// (or an explicit no-context notice) into one system instruction.
func BuildSystemPrompt(profile *store.StudentProfile, contextText, intent string) string {
	weak := "not clearly known yet"
	if len(profile.WeakTopics) > 0 {
		weak = strings.Join(profile.WeakTopics, ", ")
	}
	strong := "not clearly known yet"
	if len(profile.StrongTopics) > 0 {
		strong = strings.Join(profile.StrongTopics, ", ")
	}

	examsStr := "no specific exams recorded"
	if len(profile.UpcomingExams) > 0 {
		var parts []string
		for i, e := range profile.UpcomingExams {
			if i >= shownExams {
				break
			}
			subject := e.Subject
			if subject == "" {
				subject = "an exam"
			}
			if e.Date != nil {
				subject += " on " + e.Date.Format("02/01/2006")
			}
			parts = append(parts, subject)
		}
		examsStr = strings.Join(parts, ", ")
	}

	var ctxPart string
	if contextText != "" {
		ctxPart = fmt.Sprintf("Study Context (from the student's uploaded notes):\n%s\n\nUse this context for study questions. If the message is mainly emotional/life, context can be ignored.", contextText)
	} else {
		ctxPart = "No study context found for this chat yet. If they ask study questions, answer generally and be honest if unsure."
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are "Study Buddy", a close university friend (same age).
The user NEVER has to ask you to act like a friend. You ALWAYS behave like a friend.

Style (VERY IMPORTANT):
- Warm, casual, human.
- Short paragraphs (1-3 sentences).
- Use emojis sometimes (not every line).
- Avoid formal teacher tone.
- DO NOT use bullet points or numbered lists unless the user explicitly asks: "steps", "list", "points".

Core behavior (every reply):
1) React as a friend first (1-2 short sentences).
2) If study-related, explain simply like you're sitting next to them (2-4 short paragraphs).
3) Always end with ONE short follow-up question (feelings or understanding).

Memory:
- Weak topics: %s
- Strong topics: %s
- Upcoming exams: %s
- Motivation: %d/5, last mood: %s

Internal hint (do not reveal):
- intent: %s

Hard rules:
- No headings like "Answer:".
- No long essays.
- If context is missing, ask them to upload notes for this chat.

%s`, weak, strong, examsStr, profile.MotivationLevel, profile.LastMood, intent, ctxPart))
}

var (
	bulletLine     = regexp.MustCompile(`^\s*(\d+\.|[-*•])\s+`)
	excessBlanks   = regexp.MustCompile(`\n{3,}`)
	endsInQuestion = regexp.MustCompile(`[?？！]\s*$`)
)

// FormatBuddyReply rewrites the raw model output into casual prose: bullet
// and numbered lines are folded into a single paragraph joined by ordinal
// connectives, blank-line runs are collapsed, and a follow-up question is
// appended when the reply doesn't already end with one. Running it on its
// own output is a no-op.
func FormatBuddyReply(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return FallbackReply
	}

	var bullets, keep []string
	for _, line := range strings.Split(text, "\n") {
		if bulletLine.MatchString(line) {
			bullets = append(bullets, line)
		} else if strings.TrimSpace(line) != "" {
			keep = append(keep, strings.TrimSpace(line))
		}
	}

	if len(bullets) > 0 {
		var items []string
		for _, l := range bullets {
			item := bulletLine.ReplaceAllString(l, "")
			item = strings.TrimSpace(strings.ReplaceAll(item, "**", ""))
			if item != "" {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			var parts []string
			for i, it := range items {
				switch {
				case i == 0:
					parts = append(parts, "First, "+it)
				case i == len(items)-1:
					parts = append(parts, "Finally, "+it)
				default:
					parts = append(parts, "Then, "+it)
				}
			}
			keep = append(keep, strings.Join(parts, " "))
		}
	}

	result := strings.TrimSpace(excessBlanks.ReplaceAllString(strings.Join(keep, "\n\n"), "\n\n"))
	if result == "" {
		return FallbackReply
	}

	if !endsInQuestion.MatchString(result) {
		result += "\n\n" + followUpQuestion
	}
	return result
}
