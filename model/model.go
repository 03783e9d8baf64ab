package model

import (
	"encoding/json"
	"time"
)

type SurveyStatus string

const (
	SurveyDraft     SurveyStatus = "draft"
	SurveyPublished SurveyStatus = "published"
	SurveyArchived  SurveyStatus = "archived"
)

type Survey struct {
	ID          int64        `json:"id,omitempty"`
	Version     int          `json:"version,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      SurveyStatus `json:"status"`
	Regions     []string     `json:"regions,omitempty"`
	Questions   []Question   `json:"questions,omitempty"`
}

// Targets reports whether a caregiver in the given region should receive
// assignments for this survey. A survey with no regions is unrestricted.
func (s Survey) Targets(region string) bool {
	if len(s.Regions) == 0 {
		return true
	}
	for _, r := range s.Regions {
		if r == region {
			return true
		}
	}
	return false
}

func (s Survey) Question(id int64) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

type QuestionType string

const (
	QuestionText         QuestionType = "text"
	QuestionNumber       QuestionType = "number"
	QuestionBoolean      QuestionType = "boolean"
	QuestionDate         QuestionType = "date"
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionNumber, QuestionBoolean, QuestionDate,
		QuestionSingleChoice, QuestionMultiChoice:
		return true
	}
	return false
}

func (t QuestionType) Choice() bool {
	return t == QuestionSingleChoice || t == QuestionMultiChoice
}

type Question struct {
	ID       int64        `json:"id,omitempty"`
	SurveyID int64        `json:"survey_id,omitempty"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Position int          `json:"position"`

	// type-specific constraints, nil when unset
	MinValue  *float64 `json:"min_value,omitempty"`
	MaxValue  *float64 `json:"max_value,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`

	Options []Option `json:"options,omitempty"`
}

func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

type Option struct {
	ID         int64  `json:"id,omitempty"`
	QuestionID int64  `json:"question_id,omitempty"`
	Value      string `json:"value"`
	Label      string `json:"label"`
	Position   int    `json:"position"`
}

type Recurrence string

const (
	OneTime Recurrence = "one_time"
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
	Custom  Recurrence = "custom"
)

type Schedule struct {
	ID       int64 `json:"id,omitempty"`
	SurveyID int64 `json:"survey_id"`

	Recurrence    Recurrence `json:"recurrence"`
	DayOfWeek     *int       `json:"day_of_week,omitempty"`  // 0 = Sunday .. 6 = Saturday
	DayOfMonth    *int       `json:"day_of_month,omitempty"` // 1..31, clamped to month end
	FrequencyDays *int       `json:"frequency_days,omitempty"`
	TimeOfDay     string     `json:"time_of_day"` // "HH:mm" wall clock
	Timezone      string     `json:"timezone"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Active    bool       `json:"active"`

	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
)

type Assignment struct {
	ID          int64  `json:"id,omitempty"`
	SurveyID    int64  `json:"survey_id"`
	ScheduleID  *int64 `json:"schedule_id,omitempty"`
	CaregiverID int64  `json:"caregiver_id"`
	PatientID   *int64 `json:"patient_id,omitempty"`
	CheckInID   *int64 `json:"checkin_id,omitempty"`

	Status AssignmentStatus `json:"status"`
	// SlotAt is the occurrence instant the assignment was dispatched for.
	// It identifies the due window for idempotent dispatch.
	SlotAt      time.Time  `json:"slot_at"`
	DueAt       time.Time  `json:"due_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Response struct {
	ID           int64          `json:"id,omitempty"`
	AssignmentID int64          `json:"assignment_id"`
	SurveyID     int64          `json:"survey_id"`
	CaregiverID  int64          `json:"caregiver_id"`
	PatientID    *int64         `json:"patient_id,omitempty"`
	Reference    string         `json:"reference"`
	Meta         map[string]any `json:"meta,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	Items        []ResponseItem `json:"items,omitempty"`
}

// ResponseItem keeps the raw submitted value next to exactly one typed
// projection column matching the question's type.
type ResponseItem struct {
	ID         int64           `json:"id,omitempty"`
	ResponseID int64           `json:"response_id,omitempty"`
	QuestionID int64           `json:"question_id"`
	Raw        json.RawMessage `json:"raw"`

	TextValue   *string    `json:"text_value,omitempty"`
	NumberValue *float64   `json:"number_value,omitempty"`
	BoolValue   *bool      `json:"bool_value,omitempty"`
	DateValue   *time.Time `json:"date_value,omitempty"`
}

type CheckInStatus string

const (
	CheckInPending   CheckInStatus = "pending"
	CheckInCompleted CheckInStatus = "completed"
)

type CheckIn struct {
	ID          int64         `json:"id,omitempty"`
	CaregiverID int64         `json:"caregiver_id"`
	PatientID   *int64        `json:"patient_id,omitempty"`
	Status      CheckInStatus `json:"status"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

type Caregiver struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Region   string `json:"region"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

type Patient struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Pairing is one caregiver/patient combination a due schedule dispatches to.
// PatientID is nil for caregivers without patient assignments.
type Pairing struct {
	Caregiver Caregiver
	PatientID *int64
}
