package submission

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carebridge/checkin/model"
	"github.com/carebridge/checkin/store"
	"github.com/carebridge/checkin/validation"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrForbidden covers both a missing assignment and one owned by another
	// caregiver, so callers cannot probe for other people's assignment ids.
	ErrForbidden        = errors.New("assignment not found for caregiver")
	ErrAlreadySubmitted = errors.New("assignment already submitted")
	ErrExpired          = errors.New("assignment is past its due time")
	ErrNotAvailable     = errors.New("survey is not accepting responses")
)

// ValidationError carries the full list of field-level violations so the
// caller can surface every problem at once.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string { return "validation failed: " + e.err.Error() }
func (e *ValidationError) Unwrap() error { return e.err }

// Messages flattens the aggregate into one message per violated constraint.
func (e *ValidationError) Messages() []string {
	return validation.Messages(e.err)
}

// Committer performs the atomic response commit for an assignment.
type Committer struct {
	Store store.Store
	// Clock is the time source, defaulting to time.Now. Tests pin it.
	Clock func() time.Time
}

func NewCommitter(st store.Store) *Committer {
	return &Committer{Store: st, Clock: time.Now}
}

// Submit validates the answers for the caregiver's assignment and commits
// response, items, assignment completion and any linked check-in completion
// in one transaction. Precondition failures short-circuit before validation,
// each with its own error kind.
func (c *Committer) Submit(ctx context.Context, caregiverID, assignmentID int64, answers map[int64]json.RawMessage, meta map[string]any) (*model.Response, error) {
	now := time.Now
	if c.Clock != nil {
		now = c.Clock
	}
	at := now().UTC()

	a, err := c.Store.GetAssignment(ctx, assignmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if a.CaregiverID != caregiverID {
		return nil, ErrForbidden
	}
	if a.Status == model.AssignmentCompleted {
		return nil, ErrAlreadySubmitted
	}
	if at.After(a.DueAt) {
		return nil, ErrExpired
	}

	survey, err := c.Store.GetSurvey(ctx, a.SurveyID)
	if err != nil {
		return nil, err
	}
	if survey.Status != model.SurveyPublished {
		return nil, ErrNotAvailable
	}

	typed, err := validation.Answers(survey.Questions, answers)
	if err != nil {
		return nil, &ValidationError{err: err}
	}

	ref, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "generate reference")
	}

	response := &model.Response{
		AssignmentID: a.ID,
		SurveyID:     survey.ID,
		CaregiverID:  a.CaregiverID,
		PatientID:    a.PatientID,
		Reference:    ref.String(),
		Meta:         meta,
		SubmittedAt:  at,
	}

	// items follow question order so readers see answers in schema order
	items := make([]model.ResponseItem, 0, len(typed))
	for _, q := range survey.Questions {
		answer, ok := typed[q.ID]
		if !ok {
			continue
		}
		items = append(items, model.NewResponseItem(q.ID, answers[q.ID], answer))
	}

	err = c.Store.Submit(ctx, func(uow store.UnitOfWork) error {
		if err := uow.CompleteAssignment(ctx, a.ID, at); err != nil {
			return err
		}
		if err := uow.InsertResponse(ctx, response); err != nil {
			return err
		}
		if err := uow.InsertResponseItems(ctx, response.ID, items); err != nil {
			return err
		}
		if a.CheckInID != nil {
			return uow.CompleteCheckIn(ctx, *a.CheckInID, at)
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotPending), errors.Is(err, store.ErrConflict):
		// lost the race against a concurrent submission
		return nil, ErrAlreadySubmitted
	case err != nil:
		return nil, err
	}

	response.Items = items
	return response, nil
}
