package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical deadline format used in storage and transport.
const DateLayout = "2006-01-02"

const (
	DefaultSubject     = "Umum"
	DefaultDescription = "Tanpa Deskripsi"
)

// Task is one academic to-do item. ID is zero until the task is persisted.
type Task struct {
	ID          int64
	Subject     string
	Description string
	Deadline    time.Time
	Priority    Priority
	Status      Status
}

// TaskInput carries raw field values as collected by a presentation layer.
// Deadline may be a time.Time, a *time.Time or a YYYY-MM-DD string.
type TaskInput struct {
	ID          int64
	Subject     string
	Description string
	Deadline    any
	Priority    string
	Status      string
}

// Fallback names a default that was substituted while normalizing input.
type Fallback struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Input  string `json:"input,omitempty"`
}

const (
	FallbackSubject        = "subject"
	FallbackDescription    = "description"
	FallbackPriority       = "priority"
	FallbackStatus         = "status"
	FallbackDeadlineFormat = "deadline_format"
	FallbackDeadlineType   = "deadline_type"
)

func (f Fallback) String() string {
	if f.Input != "" {
		return fmt.Sprintf("%s: %s (%q)", f.Field, f.Reason, f.Input)
	}
	return fmt.Sprintf("%s: %s", f.Field, f.Reason)
}

var now = time.Now

// NewTask normalizes raw input into a Task. It never fails; every default it
// had to substitute is reported in the returned fallbacks.
func NewTask(in TaskInput) (Task, []Fallback) {
	var fallbacks []Fallback

	t := Task{ID: in.ID}

	t.Subject = strings.TrimSpace(in.Subject)
	if t.Subject == "" {
		t.Subject = DefaultSubject
		fallbacks = append(fallbacks, Fallback{Field: FallbackSubject, Reason: "empty, using default"})
	}

	t.Description = strings.TrimSpace(in.Description)
	if t.Description == "" {
		t.Description = DefaultDescription
		fallbacks = append(fallbacks, Fallback{Field: FallbackDescription, Reason: "empty, using default"})
	}

	t.Priority = Priority(in.Priority)
	if in.Priority == "" {
		t.Priority = DefaultPriority
		fallbacks = append(fallbacks, Fallback{Field: FallbackPriority, Reason: "empty, using default"})
	}

	t.Status = Status(in.Status)
	if in.Status == "" {
		t.Status = DefaultStatus
		fallbacks = append(fallbacks, Fallback{Field: FallbackStatus, Reason: "empty, using default"})
	}

	deadline, fb := normalizeDeadline(in.Deadline)
	t.Deadline = deadline
	if fb != nil {
		fallbacks = append(fallbacks, *fb)
	}

	return t, fallbacks
}

func normalizeDeadline(v any) (time.Time, *Fallback) {
	switch d := v.(type) {
	case time.Time:
		return truncateToDate(d), nil
	case *time.Time:
		if d != nil {
			return truncateToDate(*d), nil
		}
	case string:
		parsed, err := ParseDate(d)
		if err == nil {
			return parsed, nil
		}
		return Today(), &Fallback{
			Field:  FallbackDeadlineFormat,
			Reason: "invalid date, expected YYYY-MM-DD, using today",
			Input:  d,
		}
	}

	return Today(), &Fallback{
		Field:  FallbackDeadlineType,
		Reason: fmt.Sprintf("unsupported deadline type %T, using today", v),
	}
}

// ParseDate parses a strict YYYY-MM-DD string into a date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today returns the current local calendar date at UTC midnight.
func Today() time.Time {
	return truncateToDate(now())
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (t Task) IsPersisted() bool {
	return t.ID > 0
}

func (t Task) DeadlineString() string {
	return t.Deadline.Format(DateLayout)
}

// ToMap returns the storage field-value mapping of the task.
func (t Task) ToMap() map[string]string {
	return map[string]string{
		"matkul":    t.Subject,
		"deskripsi": t.Description,
		"deadline":  t.DeadlineString(),
		"prioritas": string(t.Priority),
		"status":    string(t.Status),
	}
}

func (t Task) String() string {
	return fmt.Sprintf("Task(ID:%d, Matkul:%q, %q, Deadline:%s, Prioritas:%s, Status:%s)",
		t.ID, t.Subject, t.Description, t.DeadlineString(), t.Priority, t.Status)
}

type taskJSON struct {
	ID          int64    `json:"id"`
	Subject     string   `json:"matkul"`
	Description string   `json:"deskripsi"`
	Deadline    string   `json:"deadline"`
	Priority    Priority `json:"prioritas"`
	Status      Status   `json:"status"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskJSON{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Deadline:    t.DeadlineString(),
		Priority:    t.Priority,
		Status:      t.Status,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	deadline, err := ParseDate(raw.Deadline)
	if err != nil {
		return fmt.Errorf("invalid deadline %q: %w", raw.Deadline, err)
	}

	*t = Task{
		ID:          raw.ID,
		Subject:     raw.Subject,
		Description: raw.Description,
		Deadline:    deadline,
		Priority:    raw.Priority,
		Status:      raw.Status,
	}
	return nil
}
