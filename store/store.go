package store

import (
	"context"
	"time"

	"github.com/carebridge/checkin/model"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports an optimistic-lock or uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrNotPending reports a failed compare-and-swap on assignment status:
	// the assignment was already completed by the time the update ran.
	ErrNotPending = errors.New("assignment is not pending")
)

// Store is the repository contract the engine runs against. The sqlite
// implementation backs the service; the in-memory one backs the core tests.
type Store interface {
	CreateSurvey(ctx context.Context, s *model.Survey) error
	UpdateSurvey(ctx context.Context, s *model.Survey) error
	DeleteSurvey(ctx context.Context, id int64) error
	GetSurvey(ctx context.Context, id int64) (*model.Survey, error)
	ListSurveys(ctx context.Context) ([]model.Survey, error)
	SetSurveyStatus(ctx context.Context, id int64, status model.SurveyStatus) error

	CreateSchedule(ctx context.Context, s *model.Schedule) error
	UpdateSchedule(ctx context.Context, s *model.Schedule) error
	DeleteSchedule(ctx context.Context, id int64) error
	GetSchedule(ctx context.Context, id int64) (*model.Schedule, error)
	ListSchedules(ctx context.Context, surveyID int64) ([]model.Schedule, error)
	// DueSchedules returns active schedules whose next run is at or before now,
	// started, and not past their end date.
	DueSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error)
	// AdvanceSchedule moves the run pointers only if next_run still matches
	// expectedNext, so concurrent ticks cannot double-dispatch. Reports whether
	// this caller won the update.
	AdvanceSchedule(ctx context.Context, id int64, expectedNext *time.Time, lastRun time.Time, nextRun *time.Time) (bool, error)

	// Pairings lists every active caregiver/patient combination. Caregivers
	// without patients appear once with a nil patient.
	Pairings(ctx context.Context) ([]model.Pairing, error)
	GetCaregiver(ctx context.Context, id int64) (*model.Caregiver, error)

	CreateCheckIn(ctx context.Context, c *model.CheckIn) error
	GetCheckIn(ctx context.Context, id int64) (*model.CheckIn, error)

	// CreateAssignment inserts unless an assignment for the same
	// (survey, caregiver, patient, slot) already exists. Reports whether a row
	// was actually created.
	CreateAssignment(ctx context.Context, a *model.Assignment) (bool, error)
	GetAssignment(ctx context.Context, id int64) (*model.Assignment, error)
	ListAssignments(ctx context.Context, caregiverID int64, status model.AssignmentStatus) ([]model.Assignment, error)

	GetResponse(ctx context.Context, assignmentID int64) (*model.Response, error)
	ListResponses(ctx context.Context, surveyID int64) ([]model.Response, error)

	// Submit runs fn inside one transaction; every write made through the
	// unit of work commits together or not at all.
	Submit(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// UnitOfWork exposes the writes the response commit performs atomically.
type UnitOfWork interface {
	// CompleteAssignment flips pending to completed, failing with
	// ErrNotPending when the assignment is no longer pending.
	CompleteAssignment(ctx context.Context, id int64, at time.Time) error
	InsertResponse(ctx context.Context, r *model.Response) error
	InsertResponseItems(ctx context.Context, responseID int64, items []model.ResponseItem) error
	CompleteCheckIn(ctx context.Context, id int64, at time.Time) error
}
