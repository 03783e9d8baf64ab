package validation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/carebridge/checkin/model"
	"github.com/hashicorp/go-multierror"
)

func floatp(v float64) *float64 { return &v }
func intp(v int) *int           { return &v }

func moodQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Text: "How is the patient feeling?", Type: model.QuestionText, Required: true, Position: 0,
			MinLength: intp(3), MaxLength: intp(200)},
		{ID: 2, Text: "Pain level", Type: model.QuestionNumber, Required: true, Position: 1,
			MinValue: floatp(0), MaxValue: floatp(10)},
		{ID: 3, Text: "Medication taken?", Type: model.QuestionBoolean, Required: true, Position: 2},
		{ID: 4, Text: "Date of last meal", Type: model.QuestionDate, Required: false, Position: 3},
		{ID: 5, Text: "Mobility", Type: model.QuestionSingleChoice, Required: false, Position: 4,
			Options: []model.Option{
				{Value: "bed", Label: "Bed-bound"},
				{Value: "assisted", Label: "Assisted"},
				{Value: "independent", Label: "Independent"},
			}},
		{ID: 6, Text: "Symptoms observed", Type: model.QuestionMultiChoice, Required: false, Position: 5,
			Options: []model.Option{
				{Value: "fever", Label: "Fever"},
				{Value: "cough", Label: "Cough"},
				{Value: "fatigue", Label: "Fatigue"},
			}},
	}
}

func raw(t *testing.T, pairs map[int64]any) map[int64]json.RawMessage {
	t.Helper()
	out := make(map[int64]json.RawMessage, len(pairs))
	for id, v := range pairs {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal answer for question %d: %v", id, err)
		}
		out[id] = b
	}
	return out
}

func TestAnswersValidSubmission(t *testing.T) {
	t.Parallel()
	answers, err := Answers(moodQuestions(), raw(t, map[int64]any{
		1: "Feeling much better today",
		2: 3,
		3: true,
		4: "2025-08-20",
		5: "assisted",
		6: []string{"cough", "fatigue"},
	}))
	if err != nil {
		t.Fatalf("Answers error: %v", err)
	}
	if len(answers) != 6 {
		t.Fatalf("got %d answers, want 6", len(answers))
	}

	if a, ok := answers[2].(model.NumberAnswer); !ok || a.Value != 3 {
		t.Errorf("answers[2] = %#v, want NumberAnswer{3}", answers[2])
	}
	if a, ok := answers[4].(model.DateAnswer); !ok || !a.Value.Equal(time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("answers[4] = %#v, want DateAnswer{2025-08-20}", answers[4])
	}
	if a, ok := answers[6].(model.MultiChoiceAnswer); !ok || len(a.Values) != 2 {
		t.Errorf("answers[6] = %#v, want MultiChoiceAnswer with 2 values", answers[6])
	}
}

func TestAnswersRequiredExhaustiveness(t *testing.T) {
	t.Parallel()
	// three required questions, empty answer map: exactly three errors
	_, err := Answers(moodQuestions(), nil)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msgs := Messages(err)
	if len(msgs) != 3 {
		t.Fatalf("got %d errors %v, want 3", len(msgs), msgs)
	}
	for _, q := range []string{"How is the patient feeling?", "Pain level", "Medication taken?"} {
		found := false
		for _, m := range msgs {
			if strings.Contains(m, q) {
				found = true
			}
		}
		if !found {
			t.Errorf("no error names required question %q: %v", q, msgs)
		}
	}
}

func TestAnswersCollectsEveryViolation(t *testing.T) {
	t.Parallel()
	_, err := Answers(moodQuestions(), raw(t, map[int64]any{
		1:  "no",              // below min length
		2:  15,                // above max
		3:  "yes",             // not a strict boolean
		4:  "not-a-date",      // unparseable
		5:  "wheelchair",      // not an option
		6:  []string{"chill"}, // not an option
		99: "stray",           // unknown question
	}))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if msgs := Messages(err); len(msgs) != 7 {
		t.Fatalf("got %d errors, want 7: %v", len(msgs), msgs)
	}

	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("error is %T, want *multierror.Error", err)
	}
	if len(merr.Errors) != 7 {
		t.Fatalf("aggregate holds %d errors, want 7", len(merr.Errors))
	}
}

func TestAnswersOptionalEmptySkipped(t *testing.T) {
	t.Parallel()
	questions := moodQuestions()
	answers, err := Answers(questions, map[int64]json.RawMessage{
		1: json.RawMessage(`"All good today"`),
		2: json.RawMessage(`5`),
		3: json.RawMessage(`false`),
		4: json.RawMessage(`null`),
		5: json.RawMessage(`""`),
		6: json.RawMessage(`[]`),
	})
	if err != nil {
		t.Fatalf("Answers error: %v", err)
	}
	if len(answers) != 3 {
		t.Fatalf("got %d answers, want 3 (optional empties skipped)", len(answers))
	}
	for _, id := range []int64{4, 5, 6} {
		if _, ok := answers[id]; ok {
			t.Errorf("empty optional answer %d should be skipped", id)
		}
	}
}

func TestAnswersRequiredEmptyStringRejected(t *testing.T) {
	t.Parallel()
	_, err := Answers(moodQuestions(), map[int64]json.RawMessage{
		1: json.RawMessage(`""`),
		2: json.RawMessage(`5`),
		3: json.RawMessage(`true`),
	})
	if err == nil {
		t.Fatal("expected an error for the empty required answer")
	}
	if msgs := Messages(err); len(msgs) != 1 || !strings.Contains(msgs[0], "required") {
		t.Fatalf("unexpected errors: %v", msgs)
	}
}

func TestAnswersNumberRejectsNonNumeric(t *testing.T) {
	t.Parallel()
	questions := []model.Question{
		{ID: 1, Text: "Pain level", Type: model.QuestionNumber, Required: true},
	}
	for _, bad := range []string{`"7"`, `true`, `{"value":7}`} {
		_, err := Answers(questions, map[int64]json.RawMessage{1: json.RawMessage(bad)})
		if err == nil {
			t.Errorf("payload %s: expected an error", bad)
		}
	}
}

func TestAnswersDateAcceptsTimestamp(t *testing.T) {
	t.Parallel()
	questions := []model.Question{
		{ID: 1, Text: "Date of visit", Type: model.QuestionDate, Required: true},
	}
	answers, err := Answers(questions, map[int64]json.RawMessage{
		1: json.RawMessage(`"2025-08-20T14:30:00+02:00"`),
	})
	if err != nil {
		t.Fatalf("Answers error: %v", err)
	}
	a := answers[1].(model.DateAnswer)
	if want := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC); !a.Value.Equal(want) {
		t.Fatalf("date = %v, want %v (normalized to the calendar date)", a.Value, want)
	}
}
