package model

import "strings"

// TaskPriority ranks how urgent a task is.
type TaskPriority string

// Task priorities.
const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// TaskRecurrence describes how often a task repeats.
type TaskRecurrence string

// Task recurrences.
const (
	RecurrenceNone    TaskRecurrence = "none"
	RecurrenceDaily   TaskRecurrence = "daily"
	RecurrenceWeekly  TaskRecurrence = "weekly"
	RecurrenceMonthly TaskRecurrence = "monthly"
	RecurrenceYearly  TaskRecurrence = "yearly"
)

// ParsedTask is a to-do item extracted from free-form text.
type ParsedTask struct {
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	DueDate              string         `json:"due_date,omitempty"`
	Priority             TaskPriority   `json:"priority"`
	Recurrence           TaskRecurrence `json:"recurrence"`
	Source               Source         `json:"source"`
	Model                string         `json:"model,omitempty"`
	ErrorNote            string         `json:"error_note,omitempty"`
	Confidence           float64        `json:"confidence"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
	FallbackUsed         bool           `json:"fallback_used"`
}

// ApplyConfirmationGate flags tasks without a title or with low confidence.
func (t *ParsedTask) ApplyConfirmationGate() {
	t.RequiresConfirmation = t.Title == "" || t.Confidence < ConfirmationThreshold
}

// NormalizePriority maps free-form priority words onto the closed set.
func NormalizePriority(raw string) TaskPriority {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch TaskPriority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return TaskPriority(raw)
	case "critical":
		return PriorityUrgent
	case "normal", "":
		return PriorityMedium
	}
	return PriorityMedium
}

// NormalizeRecurrence maps free-form recurrence words onto the closed set.
func NormalizeRecurrence(raw string) TaskRecurrence {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch TaskRecurrence(raw) {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return TaskRecurrence(raw)
	case "annually", "annual":
		return RecurrenceYearly
	}
	return RecurrenceNone
}
