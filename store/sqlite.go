package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/carebridge/checkin/model"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLite implements Store over database/sql with the mattn/go-sqlite3 driver.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func isConstraint(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// --- surveys ---

func (s *SQLite) CreateSurvey(ctx context.Context, survey *model.Survey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	regions, err := json.Marshal(survey.Regions)
	if err != nil {
		return errors.Wrap(err, "marshal regions")
	}
	if survey.Status == "" {
		survey.Status = model.SurveyDraft
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO survey (version, title, description, status, regions)
		VALUES (1, ?, ?, ?, ?)
		RETURNING id`,
		survey.Title, survey.Description, survey.Status, string(regions),
	).Scan(&survey.ID)
	if err != nil {
		return errors.Wrap(err, "insert survey")
	}
	survey.Version = 1

	if err := insertQuestions(ctx, tx, survey); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *SQLite) UpdateSurvey(ctx context.Context, survey *model.Survey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	regions, err := json.Marshal(survey.Regions)
	if err != nil {
		return errors.Wrap(err, "marshal regions")
	}

	// optimistic lock on version
	res, err := tx.ExecContext(ctx, `
		UPDATE survey
		SET title = ?, description = ?, regions = ?, version = version+1
		WHERE id = ? AND version = ?`,
		survey.Title, survey.Description, string(regions),
		survey.ID, survey.Version,
	)
	if err != nil {
		return errors.Wrap(err, "update survey")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return ErrConflict
	}
	survey.Version++

	// replace the question set wholesale
	if _, err := tx.ExecContext(ctx, `DELETE FROM question WHERE survey_id = ?`, survey.ID); err != nil {
		return errors.Wrap(err, "delete questions")
	}
	if err := insertQuestions(ctx, tx, survey); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func insertQuestions(ctx context.Context, tx *sql.Tx, survey *model.Survey) error {
	qstmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (survey_id, text, type, required, position, min_value, max_value, min_length, max_length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return errors.Wrap(err, "prepare questions")
	}
	defer qstmt.Close()

	ostmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question_option (question_id, value, label, position)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return errors.Wrap(err, "prepare options")
	}
	defer ostmt.Close()

	for i := range survey.Questions {
		q := &survey.Questions[i]
		q.SurveyID = survey.ID
		q.Position = i

		err = qstmt.QueryRowContext(ctx,
			survey.ID, q.Text, q.Type, q.Required, q.Position,
			q.MinValue, q.MaxValue, q.MinLength, q.MaxLength,
		).Scan(&q.ID)
		if err != nil {
			return errors.Wrap(err, "insert question")
		}

		for j := range q.Options {
			o := &q.Options[j]
			o.QuestionID = q.ID
			o.Position = j
			err = ostmt.QueryRowContext(ctx, q.ID, o.Value, o.Label, o.Position).Scan(&o.ID)
			if err != nil {
				if isConstraint(err) {
					return errors.WithMessagef(ErrConflict, "duplicate option value %q", o.Value)
				}
				return errors.Wrap(err, "insert option")
			}
		}
	}
	return nil
}

func (s *SQLite) DeleteSurvey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM survey WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete survey")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) GetSurvey(ctx context.Context, id int64) (*model.Survey, error) {
	survey := model.Survey{ID: id}
	var regions string
	err := s.db.QueryRowContext(ctx, `
		SELECT version, title, description, status, regions
		FROM survey WHERE id = ?`,
		id,
	).Scan(&survey.Version, &survey.Title, &survey.Description, &survey.Status, &regions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get survey")
	}
	if err := json.Unmarshal([]byte(regions), &survey.Regions); err != nil {
		return nil, errors.Wrap(err, "parse regions")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, type, required, position, min_value, max_value, min_length, max_length
		FROM question WHERE survey_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get questions")
	}
	defer rows.Close()

	index := map[int64]int{}
	for rows.Next() {
		q := model.Question{SurveyID: id}
		err = rows.Scan(&q.ID, &q.Text, &q.Type, &q.Required, &q.Position,
			&q.MinValue, &q.MaxValue, &q.MinLength, &q.MaxLength)
		if err != nil {
			return nil, errors.Wrap(err, "scan question")
		}
		index[q.ID] = len(survey.Questions)
		survey.Questions = append(survey.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "scan questions")
	}

	orows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.value, o.label, o.position
		FROM question_option o
		INNER JOIN question q ON (q.id = o.question_id)
		WHERE q.survey_id = ?
		ORDER BY o.question_id, o.position`,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get options")
	}
	defer orows.Close()

	for orows.Next() {
		o := model.Option{}
		if err := orows.Scan(&o.ID, &o.QuestionID, &o.Value, &o.Label, &o.Position); err != nil {
			return nil, errors.Wrap(err, "scan option")
		}
		if i, ok := index[o.QuestionID]; ok {
			survey.Questions[i].Options = append(survey.Questions[i].Options, o)
		}
	}
	return &survey, errors.Wrap(orows.Err(), "scan options")
}

func (s *SQLite) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, title, description, status, regions
		FROM survey ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		var sv model.Survey
		var regions string
		err = rows.Scan(&sv.ID, &sv.Version, &sv.Title, &sv.Description, &sv.Status, &regions)
		if err != nil {
			return nil, errors.Wrap(err, "scan survey")
		}
		if err := json.Unmarshal([]byte(regions), &sv.Regions); err != nil {
			return nil, errors.Wrap(err, "parse regions")
		}
		surveys = append(surveys, sv)
	}
	return surveys, errors.Wrap(rows.Err(), "scan surveys")
}

func (s *SQLite) SetSurveyStatus(ctx context.Context, id int64, status model.SurveyStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey SET status = ?, version = version+1 WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return errors.Wrap(err, "set survey status")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return ErrNotFound
	}
	return nil
}

// --- schedules ---

const scheduleColumns = `id, survey_id, recurrence, day_of_week, day_of_month, frequency_days,
	time_of_day, timezone, start_date, end_date, active, last_run, next_run`

func (s *SQLite) CreateSchedule(ctx context.Context, sc *model.Schedule) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO schedule (survey_id, recurrence, day_of_week, day_of_month, frequency_days,
			time_of_day, timezone, start_date, end_date, active, last_run, next_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		sc.SurveyID, sc.Recurrence, sc.DayOfWeek, sc.DayOfMonth, sc.FrequencyDays,
		sc.TimeOfDay, sc.Timezone, sc.StartDate, sc.EndDate, sc.Active, sc.LastRun, sc.NextRun,
	).Scan(&sc.ID)
	return errors.Wrap(err, "insert schedule")
}

func (s *SQLite) UpdateSchedule(ctx context.Context, sc *model.Schedule) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE schedule
		SET recurrence = ?, day_of_week = ?, day_of_month = ?, frequency_days = ?,
			time_of_day = ?, timezone = ?, start_date = ?, end_date = ?, active = ?,
			last_run = ?, next_run = ?
		WHERE id = ?`,
		sc.Recurrence, sc.DayOfWeek, sc.DayOfMonth, sc.FrequencyDays,
		sc.TimeOfDay, sc.Timezone, sc.StartDate, sc.EndDate, sc.Active,
		sc.LastRun, sc.NextRun,
		sc.ID,
	)
	if err != nil {
		return errors.Wrap(err, "update schedule")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedule WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete schedule")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return ErrNotFound
	}
	return nil
}

func scanSchedule(row interface{ Scan(...any) error }) (*model.Schedule, error) {
	sc := model.Schedule{}
	err := row.Scan(&sc.ID, &sc.SurveyID, &sc.Recurrence, &sc.DayOfWeek, &sc.DayOfMonth,
		&sc.FrequencyDays, &sc.TimeOfDay, &sc.Timezone, &sc.StartDate, &sc.EndDate,
		&sc.Active, &sc.LastRun, &sc.NextRun)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *SQLite) GetSchedule(ctx context.Context, id int64) (*model.Schedule, error) {
	sc, err := scanSchedule(s.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedule WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sc, errors.Wrap(err, "get schedule")
}

func (s *SQLite) ListSchedules(ctx context.Context, surveyID int64) ([]model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedule`
	args := []any{}
	if surveyID != 0 {
		query += ` WHERE survey_id = ?`
		args = append(args, surveyID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (s *SQLite) DueSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedule
		WHERE active = 1
			AND next_run IS NOT NULL
			AND next_run <= ?
			AND start_date <= ?
			AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id`,
		now, now, now,
	)
	if err != nil {
		return nil, errors.Wrap(err, "due schedules")
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows *sql.Rows) ([]model.Schedule, error) {
	schedules := []model.Schedule{}
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan schedule")
		}
		schedules = append(schedules, *sc)
	}
	return schedules, errors.Wrap(rows.Err(), "scan schedules")
}

func (s *SQLite) AdvanceSchedule(ctx context.Context, id int64, expectedNext *time.Time, lastRun time.Time, nextRun *time.Time) (bool, error) {
	// IS compares null-safe, so a nil expectedNext matches only a null column
	res, err := s.db.ExecContext(ctx, `
		UPDATE schedule
		SET last_run = ?, next_run = ?
		WHERE id = ? AND next_run IS ?`,
		lastRun, nextRun, id, expectedNext,
	)
	if err != nil {
		return false, errors.Wrap(err, "advance schedule")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "advance schedule verify")
	}
	return n > 0, nil
}

// --- caregivers ---

func (s *SQLite) Pairings(ctx context.Context) ([]model.Pairing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.username, c.full_name, c.phone, c.email, c.region, c.role, c.active,
			cp.patient_id
		FROM caregiver c
		LEFT OUTER JOIN caregiver_patient cp
			ON (cp.caregiver_id = c.id AND cp.active = 1)
		WHERE c.active = 1 AND c.role = 'caregiver'
		ORDER BY c.id`)
	if err != nil {
		return nil, errors.Wrap(err, "list pairings")
	}
	defer rows.Close()

	pairings := []model.Pairing{}
	for rows.Next() {
		p := model.Pairing{}
		err = rows.Scan(&p.Caregiver.ID, &p.Caregiver.Username, &p.Caregiver.FullName,
			&p.Caregiver.Phone, &p.Caregiver.Email, &p.Caregiver.Region,
			&p.Caregiver.Role, &p.Caregiver.Active, &p.PatientID)
		if err != nil {
			return nil, errors.Wrap(err, "scan pairing")
		}
		pairings = append(pairings, p)
	}
	return pairings, errors.Wrap(rows.Err(), "scan pairings")
}

func (s *SQLite) GetCaregiver(ctx context.Context, id int64) (*model.Caregiver, error) {
	c := model.Caregiver{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT username, full_name, phone, email, region, role, active
		FROM caregiver WHERE id = ?`,
		id,
	).Scan(&c.Username, &c.FullName, &c.Phone, &c.Email, &c.Region, &c.Role, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, errors.Wrap(err, "get caregiver")
}

// --- check-ins ---

func (s *SQLite) CreateCheckIn(ctx context.Context, c *model.CheckIn) error {
	if c.Status == "" {
		c.Status = model.CheckInPending
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO checkin (caregiver_id, patient_id, status, completed_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		c.CaregiverID, c.PatientID, c.Status, c.CompletedAt,
	).Scan(&c.ID)
	return errors.Wrap(err, "insert checkin")
}

func (s *SQLite) GetCheckIn(ctx context.Context, id int64) (*model.CheckIn, error) {
	c := model.CheckIn{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT caregiver_id, patient_id, status, completed_at
		FROM checkin WHERE id = ?`,
		id,
	).Scan(&c.CaregiverID, &c.PatientID, &c.Status, &c.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, errors.Wrap(err, "get checkin")
}

// --- assignments ---

func (s *SQLite) CreateAssignment(ctx context.Context, a *model.Assignment) (bool, error) {
	if a.Status == "" {
		a.Status = model.AssignmentPending
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO assignment (survey_id, schedule_id, caregiver_id, patient_id, checkin_id,
			status, slot_at, due_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		a.SurveyID, a.ScheduleID, a.CaregiverID, a.PatientID, a.CheckInID,
		a.Status, a.SlotAt, a.DueAt, a.CompletedAt,
	).Scan(&a.ID)
	if isConstraint(err) {
		// an assignment for this slot already exists; dispatch is idempotent
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "insert assignment")
	}
	return true, nil
}

const assignmentColumns = `id, survey_id, schedule_id, caregiver_id, patient_id, checkin_id,
	status, slot_at, due_at, completed_at`

func scanAssignment(row interface{ Scan(...any) error }) (*model.Assignment, error) {
	a := model.Assignment{}
	err := row.Scan(&a.ID, &a.SurveyID, &a.ScheduleID, &a.CaregiverID, &a.PatientID,
		&a.CheckInID, &a.Status, &a.SlotAt, &a.DueAt, &a.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLite) GetAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignment WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, errors.Wrap(err, "get assignment")
}

func (s *SQLite) ListAssignments(ctx context.Context, caregiverID int64, status model.AssignmentStatus) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignment WHERE caregiver_id = ?`
	args := []any{caregiverID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY due_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list assignments")
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan assignment")
		}
		assignments = append(assignments, *a)
	}
	return assignments, errors.Wrap(rows.Err(), "scan assignments")
}

// --- responses ---

func (s *SQLite) GetResponse(ctx context.Context, assignmentID int64) (*model.Response, error) {
	r := model.Response{AssignmentID: assignmentID}
	var meta string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, survey_id, caregiver_id, patient_id, reference, meta, submitted_at
		FROM response WHERE assignment_id = ?`,
		assignmentID,
	).Scan(&r.ID, &r.SurveyID, &r.CaregiverID, &r.PatientID, &r.Reference, &meta, &r.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get response")
	}
	if err := json.Unmarshal([]byte(meta), &r.Meta); err != nil {
		return nil, errors.Wrap(err, "parse meta")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, raw, text_value, number_value, bool_value, date_value
		FROM response_item WHERE response_id = ?
		ORDER BY id`,
		r.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get response items")
	}
	defer rows.Close()

	for rows.Next() {
		item := model.ResponseItem{ResponseID: r.ID}
		var raw string
		err = rows.Scan(&item.ID, &item.QuestionID, &raw,
			&item.TextValue, &item.NumberValue, &item.BoolValue, &item.DateValue)
		if err != nil {
			return nil, errors.Wrap(err, "scan response item")
		}
		item.Raw = json.RawMessage(raw)
		r.Items = append(r.Items, item)
	}
	return &r, errors.Wrap(rows.Err(), "scan response items")
}

func (s *SQLite) ListResponses(ctx context.Context, surveyID int64) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assignment_id, caregiver_id, patient_id, reference, meta, submitted_at
		FROM response WHERE survey_id = ?
		ORDER BY submitted_at`,
		surveyID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		r := model.Response{SurveyID: surveyID}
		var meta string
		err = rows.Scan(&r.ID, &r.AssignmentID, &r.CaregiverID, &r.PatientID,
			&r.Reference, &meta, &r.SubmittedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}
		if err := json.Unmarshal([]byte(meta), &r.Meta); err != nil {
			return nil, errors.Wrap(err, "parse meta")
		}
		responses = append(responses, r)
	}
	return responses, errors.Wrap(rows.Err(), "scan responses")
}

// --- unit of work ---

type sqliteUow struct {
	tx *sql.Tx
}

func (s *SQLite) Submit(ctx context.Context, fn func(uow UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(&sqliteUow{tx: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (u *sqliteUow) CompleteAssignment(ctx context.Context, id int64, at time.Time) error {
	// compare-and-swap on status: losing racers see zero rows updated
	res, err := u.tx.ExecContext(ctx, `
		UPDATE assignment
		SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		model.AssignmentCompleted, at, id, model.AssignmentPending,
	)
	if err != nil {
		return errors.Wrap(err, "complete assignment")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return ErrNotPending
	}
	return nil
}

func (u *sqliteUow) InsertResponse(ctx context.Context, r *model.Response) error {
	meta, err := json.Marshal(r.Meta)
	if err != nil {
		return errors.Wrap(err, "marshal meta")
	}
	if r.Meta == nil {
		meta = []byte("{}")
	}
	err = u.tx.QueryRowContext(ctx, `
		INSERT INTO response (assignment_id, survey_id, caregiver_id, patient_id, reference, meta, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		r.AssignmentID, r.SurveyID, r.CaregiverID, r.PatientID, r.Reference, string(meta), r.SubmittedAt,
	).Scan(&r.ID)
	if isConstraint(err) {
		return ErrConflict
	}
	return errors.Wrap(err, "insert response")
}

func (u *sqliteUow) InsertResponseItems(ctx context.Context, responseID int64, items []model.ResponseItem) error {
	stmt, err := u.tx.PrepareContext(ctx, `
		INSERT INTO response_item (response_id, question_id, raw, text_value, number_value, bool_value, date_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare response items")
	}
	defer stmt.Close()

	for i := range items {
		item := &items[i]
		item.ResponseID = responseID
		_, err = stmt.ExecContext(ctx, responseID, item.QuestionID, string(item.Raw),
			item.TextValue, item.NumberValue, item.BoolValue, item.DateValue)
		if err != nil {
			return errors.Wrap(err, "insert response item")
		}
	}
	return nil
}

func (u *sqliteUow) CompleteCheckIn(ctx context.Context, id int64, at time.Time) error {
	_, err := u.tx.ExecContext(ctx, `
		UPDATE checkin
		SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		model.CheckInCompleted, at, id, model.CheckInPending,
	)
	return errors.Wrap(err, "complete checkin")
}
