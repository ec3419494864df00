package routines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maestro.app/gateway/internal/model"
)

// ValidationError marks a rejected input; the handler maps it to a 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CreateInput carries the client-supplied routine fields. Zero values mean
// "not provided".
type CreateInput struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Status            string   `json:"status"`
	Schedule          string   `json:"schedule"`
	Frequency         string   `json:"frequency"`
	Priority          string   `json:"priority"`
	Tags              []string `json:"tags"`
	EstimatedDuration *int     `json:"estimated_duration"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
}

// UpdateInput is a partial update: nil fields stay unchanged.
type UpdateInput struct {
	Name              *string   `json:"name"`
	Description       *string   `json:"description"`
	Status            *string   `json:"status"`
	Schedule          *string   `json:"schedule"`
	Frequency         *string   `json:"frequency"`
	Priority          *string   `json:"priority"`
	Tags              *[]string `json:"tags"`
	EstimatedDuration *int      `json:"estimated_duration"`
	StartDate         *string   `json:"start_date"`
	EndDate           *string   `json:"end_date"`
}

// Service implements the routines CRUD semantics over the store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]model.Routine, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (model.Routine, error) {
	return s.store.Get(ctx, id)
}

// Create builds a routine from the input with defaults applied and
// persists it. Only name is required.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Routine, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Routine{}, validationErr("the name field is required")
	}

	routine := model.NewRoutine(strings.TrimSpace(in.Name), in.Description)
	if in.Status != "" {
		routine.Status = in.Status
	}
	if in.Schedule != "" {
		routine.Schedule = in.Schedule
	}
	if in.Frequency != "" {
		routine.Frequency = in.Frequency
	}
	if in.Priority != "" {
		routine.Priority = in.Priority
	}
	if in.Tags != nil {
		routine.Tags = in.Tags
	}
	if in.EstimatedDuration != nil {
		routine.EstimatedDuration = *in.EstimatedDuration
	}
	routine.StartDate = in.StartDate
	routine.EndDate = in.EndDate

	if err := validateRoutine(*routine); err != nil {
		return model.Routine{}, err
	}

	if err := s.store.Put(ctx, *routine); err != nil {
		return model.Routine{}, err
	}

	slog.InfoContext(ctx, "routine created", "routine_id", routine.ID)
	return *routine, nil
}

// Update merges the provided fields onto the stored record and refreshes
// updated_at. Fields the caller omits keep their prior values.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (model.Routine, error) {
	routine, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Routine{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return model.Routine{}, validationErr("the name field cannot be empty")
		}
		routine.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		routine.Description = *in.Description
	}
	if in.Status != nil {
		routine.Status = *in.Status
	}
	if in.Schedule != nil {
		routine.Schedule = *in.Schedule
	}
	if in.Frequency != nil {
		routine.Frequency = *in.Frequency
	}
	if in.Priority != nil {
		routine.Priority = *in.Priority
	}
	if in.Tags != nil {
		routine.Tags = *in.Tags
	}
	if in.EstimatedDuration != nil {
		routine.EstimatedDuration = *in.EstimatedDuration
	}
	if in.StartDate != nil {
		routine.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		routine.EndDate = *in.EndDate
	}

	if err := validateRoutine(routine); err != nil {
		return model.Routine{}, err
	}

	routine.UpdatedAt = time.Now().Format(time.RFC3339)

	if err := s.store.Put(ctx, routine); err != nil {
		return model.Routine{}, err
	}

	slog.InfoContext(ctx, "routine updated", "routine_id", routine.ID)
	return routine, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "routine deleted", "routine_id", id)
	return nil
}

func validateRoutine(r model.Routine) error {
	if !model.ValidRoutineStatus(r.Status) {
		return validationErr("invalid status %q", r.Status)
	}
	if !model.ValidRoutineFrequency(r.Frequency) {
		return validationErr("invalid frequency %q", r.Frequency)
	}
	if !model.ValidRoutinePriority(r.Priority) {
		return validationErr("invalid priority %q", r.Priority)
	}
	if r.Schedule != "" {
		if _, err := time.Parse("15:04", r.Schedule); err != nil {
			return validationErr("invalid schedule %q, use HH:MM", r.Schedule)
		}
	}
	if r.EstimatedDuration < 0 {
		return validationErr("estimated_duration must be zero or positive")
	}
	for field, value := range map[string]string{"start_date": r.StartDate, "end_date": r.EndDate} {
		if value == "" {
			continue
		}
		if !validDate(value) {
			return validationErr("invalid %s %q, use ISO format", field, value)
		}
	}
	return nil
}

func validDate(v string) bool {
	if _, err := time.Parse("2006-01-02", v); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, v)
	return err == nil
}

// IsValidation reports whether err is a rejected-input error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
