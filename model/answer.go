package model

import (
	"encoding/json"
	"time"
)

// Answer is the typed value submitted for one question. One concrete variant
// exists per question type, so a payload decoded into the wrong shape is
// unrepresentable past the validation layer.
type Answer interface {
	answer()
}

type TextAnswer struct {
	Value string
}

type NumberAnswer struct {
	Value float64
}

type BoolAnswer struct {
	Value bool
}

// DateAnswer holds the calendar date at midnight UTC.
type DateAnswer struct {
	Value time.Time
}

type ChoiceAnswer struct {
	Value string
}

type MultiChoiceAnswer struct {
	Values []string
}

func (TextAnswer) answer()        {}
func (NumberAnswer) answer()      {}
func (BoolAnswer) answer()        {}
func (DateAnswer) answer()        {}
func (ChoiceAnswer) answer()      {}
func (MultiChoiceAnswer) answer() {}

// ParseDate accepts an ISO-8601 calendar date or a full timestamp and
// normalizes to midnight UTC of that date.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// NewResponseItem projects a typed answer into the response_item row shape:
// the raw payload plus the single typed column for the question's type.
func NewResponseItem(questionID int64, raw json.RawMessage, a Answer) ResponseItem {
	item := ResponseItem{QuestionID: questionID, Raw: raw}

	switch v := a.(type) {
	case TextAnswer:
		item.TextValue = &v.Value
	case ChoiceAnswer:
		item.TextValue = &v.Value
	case MultiChoiceAnswer:
		// the set lives in Raw; the projection keeps a canonical JSON copy
		b, _ := json.Marshal(v.Values)
		s := string(b)
		item.TextValue = &s
	case NumberAnswer:
		item.NumberValue = &v.Value
	case BoolAnswer:
		item.BoolValue = &v.Value
	case DateAnswer:
		item.DateValue = &v.Value
	}
	return item
}
