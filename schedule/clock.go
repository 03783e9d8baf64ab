package schedule

import (
	"fmt"
	"regexp"
	"time"

	"github.com/carebridge/checkin/model"
	"github.com/pkg/errors"
)

// ErrInvalidConfig marks every schedule-configuration failure: missing
// type-specific parameters, malformed time of day, unknown timezone.
var ErrInvalidConfig = errors.New("invalid schedule configuration")

var reTimeOfDay = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Validate checks the recurrence parameters a schedule of its type must carry.
func Validate(s model.Schedule) error {
	switch s.Recurrence {
	case model.OneTime, model.Daily:
	case model.Weekly:
		if s.DayOfWeek == nil || *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			return errors.WithMessage(ErrInvalidConfig, "weekly schedule requires day_of_week in 0..6")
		}
	case model.Monthly:
		if s.DayOfMonth == nil || *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return errors.WithMessage(ErrInvalidConfig, "monthly schedule requires day_of_month in 1..31")
		}
	case model.Custom:
		if s.FrequencyDays == nil || *s.FrequencyDays < 1 {
			return errors.WithMessage(ErrInvalidConfig, "custom schedule requires frequency_days >= 1")
		}
	default:
		return errors.WithMessage(ErrInvalidConfig, fmt.Sprintf("unknown recurrence %q", s.Recurrence))
	}

	if !reTimeOfDay.MatchString(s.TimeOfDay) {
		return errors.WithMessage(ErrInvalidConfig, fmt.Sprintf("malformed time_of_day %q, want HH:mm", s.TimeOfDay))
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return errors.WithMessage(ErrInvalidConfig, fmt.Sprintf("unknown timezone %q", s.Timezone))
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return errors.WithMessage(ErrInvalidConfig, "end_date before start_date")
	}
	return nil
}

// NextRun computes the next due instant for a schedule at or after ref,
// evaluated in the schedule's timezone. A nil result with nil error means the
// schedule is retired: inactive, past its end date, or a spent one_time.
//
// Wall-clock times skipped by a DST transition resolve to the next valid
// instant on that day.
func NextRun(s model.Schedule, ref time.Time) (*time.Time, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, nil
	}

	loc, _ := time.LoadLocation(s.Timezone)
	hour, min := mustTimeOfDay(s.TimeOfDay)

	if s.Recurrence == model.OneTime {
		occurrence := atTimeOfDay(s.StartDate.In(loc), hour, min, loc)
		if s.LastRun != nil || !ref.Before(occurrence) {
			return nil, nil
		}
		return &occurrence, nil
	}

	// recurring types never fire before the start date
	if ref.Before(s.StartDate) {
		ref = s.StartDate
	}
	local := ref.In(loc)

	var next time.Time
	switch s.Recurrence {
	case model.Daily:
		next = atTimeOfDay(local, hour, min, loc)
		if next.Before(ref) {
			next = atTimeOfDay(local.AddDate(0, 0, 1), hour, min, loc)
		}

	case model.Weekly:
		ahead := (*s.DayOfWeek - int(local.Weekday()) + 7) % 7
		day := local.AddDate(0, 0, ahead)
		next = atTimeOfDay(day, hour, min, loc)
		if next.Before(ref) {
			next = atTimeOfDay(day.AddDate(0, 0, 7), hour, min, loc)
		}

	case model.Monthly:
		year, month := local.Year(), local.Month()
		next = monthlyOccurrence(year, month, *s.DayOfMonth, hour, min, loc)
		if next.Before(ref) {
			next = monthlyOccurrence(year, month+1, *s.DayOfMonth, hour, min, loc)
		}

	case model.Custom:
		base := s.StartDate
		if s.LastRun != nil {
			base = *s.LastRun
		}
		step := *s.FrequencyDays
		day := base.In(loc).AddDate(0, 0, step)
		next = atTimeOfDay(day, hour, min, loc)
		for next.Before(ref) {
			day = day.AddDate(0, 0, step)
			next = atTimeOfDay(day, hour, min, loc)
		}
	}

	if s.EndDate != nil && next.After(*s.EndDate) {
		return nil, nil
	}
	return &next, nil
}

func mustTimeOfDay(v string) (hour, min int) {
	m := reTimeOfDay.FindStringSubmatch(v)
	fmt.Sscanf(m[1], "%d", &hour)
	fmt.Sscanf(m[2], "%d", &min)
	return hour, min
}

// atTimeOfDay pins the wall-clock time onto day's calendar date. A wall time
// skipped by a DST transition resolves to the first valid instant after the
// gap, scanning forward a minute at a time until the requested clock exists.
func atTimeOfDay(day time.Time, hour, min int, loc *time.Location) time.Time {
	year, month, date := day.Date()
	for i := 0; i < 24*60; i++ {
		total := hour*60 + min + i
		h, m := (total/60)%24, total%60
		t := time.Date(year, month, date+total/(24*60), h, m, 0, 0, loc)
		if t.Hour() == h && t.Minute() == m {
			return t
		}
	}
	return time.Date(year, month, date, hour, min, 0, 0, loc)
}

// monthlyOccurrence clamps the requested day of month to the last day of a
// shorter month instead of rolling into the next one.
func monthlyOccurrence(year int, month time.Month, day, hour, min int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return atTimeOfDay(time.Date(year, month, day, 0, 0, 0, 0, loc), hour, min, loc)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
