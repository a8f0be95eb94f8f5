package models

type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

type Status string

const (
	StatusInProgress   Status = "In Progress"
	StatusNeedApproval Status = "Need Approval"
	StatusPending      Status = "Pending"
	StatusComplete     Status = "Complete"
)

const (
	DefaultPriority = PriorityMedium
	DefaultStatus   = StatusPending
)

// Priorities lists the selectable priorities in display order.
func Priorities() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
}

// Statuses lists the selectable statuses in display order.
func Statuses() []Status {
	return []Status{StatusInProgress, StatusNeedApproval, StatusPending, StatusComplete}
}

func IsValidPriority(p string) bool {
	for _, v := range Priorities() {
		if string(v) == p {
			return true
		}
	}
	return false
}

func IsValidStatus(s string) bool {
	for _, v := range Statuses() {
		if string(v) == s {
			return true
		}
	}
	return false
}
