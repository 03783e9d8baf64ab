package validation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/carebridge/checkin/model"
	"github.com/hashicorp/go-multierror"
)

// Answers decodes raw submitted values into typed answers and checks them
// against the survey's question schema. Every violation is collected in a
// single pass, so the returned *multierror.Error names all offending fields
// at once instead of failing on the first one.
//
// Optional questions with an absent or empty value are skipped. The returned
// map only contains answers that decoded cleanly.
func Answers(questions []model.Question, raw map[int64]json.RawMessage) (map[int64]model.Answer, error) {
	var errs *multierror.Error
	answers := make(map[int64]model.Answer, len(raw))

	known := make(map[int64]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true

		value, ok := raw[q.ID]
		if !ok || isEmpty(value) {
			if q.Required {
				errs = multierror.Append(errs, fmt.Errorf("question %q is required", q.Text))
			}
			continue
		}

		answer, err := decode(q, value)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		answers[q.ID] = answer
	}

	for id := range raw {
		if !known[id] {
			errs = multierror.Append(errs, fmt.Errorf("answer references unknown question %d", id))
		}
	}

	return answers, errs.ErrorOrNil()
}

// Messages flattens a validation error into its field-level messages.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

func decode(q model.Question, raw json.RawMessage) (model.Answer, error) {
	switch q.Type {
	case model.QuestionText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("question %q: answer must be a string", q.Text)
		}
		if q.MinLength != nil && len(s) < *q.MinLength {
			return nil, fmt.Errorf("question %q: answer must be at least %d characters", q.Text, *q.MinLength)
		}
		if q.MaxLength != nil && len(s) > *q.MaxLength {
			return nil, fmt.Errorf("question %q: answer must be at most %d characters", q.Text, *q.MaxLength)
		}
		return model.TextAnswer{Value: s}, nil

	case model.QuestionNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("question %q: answer must be a number", q.Text)
		}
		if q.MinValue != nil && n < *q.MinValue {
			return nil, fmt.Errorf("question %q: answer must be >= %v", q.Text, *q.MinValue)
		}
		if q.MaxValue != nil && n > *q.MaxValue {
			return nil, fmt.Errorf("question %q: answer must be <= %v", q.Text, *q.MaxValue)
		}
		return model.NumberAnswer{Value: n}, nil

	case model.QuestionBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("question %q: answer must be true or false", q.Text)
		}
		return model.BoolAnswer{Value: b}, nil

	case model.QuestionDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("question %q: answer must be a date string", q.Text)
		}
		d, ok := model.ParseDate(s)
		if !ok {
			return nil, fmt.Errorf("question %q: %q is not a valid date", q.Text, s)
		}
		return model.DateAnswer{Value: d}, nil

	case model.QuestionSingleChoice:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("question %q: answer must be a single choice value", q.Text)
		}
		if len(q.Options) > 0 && !q.HasOption(s) {
			return nil, fmt.Errorf("question %q: %q is not one of the options", q.Text, s)
		}
		return model.ChoiceAnswer{Value: s}, nil

	case model.QuestionMultiChoice:
		var vals []string
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, fmt.Errorf("question %q: answer must be a list of choice values", q.Text)
		}
		if len(q.Options) > 0 {
			for _, v := range vals {
				if !q.HasOption(v) {
					return nil, fmt.Errorf("question %q: %q is not one of the options", q.Text, v)
				}
			}
		}
		return model.MultiChoiceAnswer{Values: vals}, nil
	}

	return nil, fmt.Errorf("question %q: unsupported type %q", q.Text, q.Type)
}

// isEmpty treats JSON null, the empty string and the empty array as absent,
// matching what a UI submits for untouched optional fields.
func isEmpty(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", `""`, "[]":
		return true
	}
	return false
}
