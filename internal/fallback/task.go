package fallback

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/spice-gateway/internal/model"
)

// Task fallback confidences stay below the confirmation threshold.
const (
	TaskConfidenceWithTitle = 0.4
	TaskConfidenceNoTitle   = 0.1
)

const maxTitleLength = 120

var (
	taskPrefixRe = regexp.MustCompile(`(?i)^(?:please\s+)?(?:remind me to|i need to|i have to|i must|need to|have to|todo:?|to do:?|task:?)\s*`)
	isoDateRe    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	weekdayRe    = regexp.MustCompile(`(?i)\b(?:on|by|next|this)?\s*(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

type priorityRule struct {
	priority model.TaskPriority
	phrases  []string
}

var priorityRules = []priorityRule{
	{priority: model.PriorityUrgent, phrases: []string{"urgent", "asap", "immediately", "right now", "emergency"}},
	{priority: model.PriorityHigh, phrases: []string{"important", "high priority", "must", "deadline"}},
	{priority: model.PriorityLow, phrases: []string{"low priority", "whenever", "someday", "eventually", "no rush"}},
}

type recurrenceRule struct {
	recurrence model.TaskRecurrence
	phrases    []string
}

var recurrenceRules = []recurrenceRule{
	{recurrence: model.RecurrenceDaily, phrases: []string{"every day", "everyday", "daily", "each day", "every morning", "every night"}},
	{recurrence: model.RecurrenceWeekly, phrases: []string{"every week", "weekly", "each week"}},
	{recurrence: model.RecurrenceMonthly, phrases: []string{"every month", "monthly", "each month"}},
	{recurrence: model.RecurrenceYearly, phrases: []string{"every year", "yearly", "annually", "each year"}},
}

// Task turns text into a single low-confidence task.
func Task(text string, today time.Time) model.ParsedTask {
	cleaned := cleanPhrase(text)
	words := wordSet(cleaned)

	task := model.ParsedTask{
		Title:      taskTitle(cleaned),
		Priority:   model.PriorityMedium,
		Recurrence: model.RecurrenceNone,
		DueDate:    dueDate(cleaned, words, today),
		Source:     model.SourceFallback,
	}
	if len(cleaned) > maxTitleLength {
		task.Description = cleaned
	}

	for _, rule := range priorityRules {
		if hasAnyPhrase(words, rule.phrases) {
			task.Priority = rule.priority
			break
		}
	}
	for _, rule := range recurrenceRules {
		if hasAnyPhrase(words, rule.phrases) {
			task.Recurrence = rule.recurrence
			break
		}
	}

	task.Confidence = TaskConfidenceNoTitle
	if task.Title != "" {
		task.Confidence = TaskConfidenceWithTitle
	}
	task.FallbackUsed = true
	task.ApplyConfirmationGate()
	return task
}

func taskTitle(text string) string {
	title := strings.TrimSpace(taskPrefixRe.ReplaceAllString(text, ""))
	if title == "" {
		return ""
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:maxTitleLength]))
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

func dueDate(text string, words wordIndex, today time.Time) string {
	if m := isoDateRe.FindString(text); m != "" {
		if date, ok := model.ParseDate(m); ok {
			return date
		}
	}

	switch {
	case words.has("today") || words.has("tonight"):
		return today.Format(model.DateLayout)
	case words.has("day after tomorrow"):
		return today.AddDate(0, 0, 2).Format(model.DateLayout)
	case words.has("tomorrow"):
		return today.AddDate(0, 0, 1).Format(model.DateLayout)
	case words.has("next week"):
		return today.AddDate(0, 0, 7).Format(model.DateLayout)
	case words.has("next month"):
		return today.AddDate(0, 1, 0).Format(model.DateLayout)
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		return nextWeekday(today, m[1]).Format(model.DateLayout)
	}
	return ""
}

// nextWeekday returns the next date strictly after today falling on name.
func nextWeekday(today time.Time, name string) time.Time {
	target := today.Weekday()
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			target = d
			break
		}
	}
	days := (int(target) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

func hasAnyPhrase(words wordIndex, phrases []string) bool {
	for _, p := range phrases {
		if words.has(p) {
			return true
		}
	}
	return false
}
