package model

import (
	"time"

	"github.com/google/uuid"
)

type RoutineStatus string

const (
	RoutineStatusPending    RoutineStatus = "pending"
	RoutineStatusInProgress RoutineStatus = "in_progress"
	RoutineStatusCompleted  RoutineStatus = "completed"
	RoutineStatusCancelled  RoutineStatus = "cancelled"
)

type RoutineFrequency string

const (
	FrequencyDaily    RoutineFrequency = "daily"
	FrequencyWeekly   RoutineFrequency = "weekly"
	FrequencyMonthly  RoutineFrequency = "monthly"
	FrequencyWeekdays RoutineFrequency = "weekdays"
	FrequencyWeekends RoutineFrequency = "weekends"
	FrequencyCustom   RoutineFrequency = "custom"
)

type RoutinePriority string

const (
	PriorityLow    RoutinePriority = "low"
	PriorityMedium RoutinePriority = "medium"
	PriorityHigh   RoutinePriority = "high"
)

// Routine is the record held by the routines table. The CRUD service owns
// its lifecycle; the gateway only validates shape before submitting writes.
type Routine struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Status            string   `json:"status"`
	Schedule          string   `json:"schedule"`
	Frequency         string   `json:"frequency"`
	Priority          string   `json:"priority"`
	Tags              []string `json:"tags"`
	EstimatedDuration int      `json:"estimated_duration"`
	StartDate         string   `json:"start_date,omitempty"`
	EndDate           string   `json:"end_date,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// NewRoutine creates a routine with a generated id, timestamps and the
// documented defaults applied to unset optional fields.
func NewRoutine(name, description string) *Routine {
	now := time.Now().Format(time.RFC3339)
	return &Routine{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      string(RoutineStatusPending),
		Schedule:    "09:00",
		Frequency:   string(FrequencyDaily),
		Priority:    string(PriorityLow),
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ValidRoutineStatus(s string) bool {
	switch RoutineStatus(s) {
	case RoutineStatusPending, RoutineStatusInProgress, RoutineStatusCompleted, RoutineStatusCancelled:
		return true
	}
	return false
}

func ValidRoutineFrequency(s string) bool {
	switch RoutineFrequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyWeekdays, FrequencyWeekends, FrequencyCustom:
		return true
	}
	return false
}

func ValidRoutinePriority(s string) bool {
	switch RoutinePriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
