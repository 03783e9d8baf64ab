package dispatch

import (
	"context"
	"time"

	"github.com/carebridge/checkin/log"
	"github.com/carebridge/checkin/model"
	"github.com/carebridge/checkin/schedule"
	"github.com/carebridge/checkin/store"
)

// Reminder is the delivery request handed to the notification collaborator
// for each freshly created assignment.
type Reminder struct {
	Contact   string
	Caregiver string
	Survey    string
	DueAt     time.Time
}

// Notifier delivers reminders out of band. Failures are logged by the
// dispatcher and never affect assignment creation; retries are the
// collaborator's business.
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// Dispatcher turns due schedules into assignments on a periodic tick.
type Dispatcher struct {
	store    store.Store
	notifier Notifier
	interval time.Duration
	window   time.Duration

	stop chan struct{}
	done chan struct{}
}

func New(st store.Store, notifier Notifier, interval, window time.Duration) *Dispatcher {
	return &Dispatcher{
		store:    st,
		notifier: notifier,
		interval: interval,
		window:   window,
	}
}

// Start launches the periodic tick loop. The dispatcher is a single-flow
// process: one tick runs at a time, driven by the ticker.
func (d *Dispatcher) Start(ctx context.Context) {
	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		log.Infof("dispatcher: started, tick every %s", d.interval)

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stop:
				return
			case now := <-ticker.C:
				if _, err := d.Tick(ctx, now.UTC()); err != nil {
					log.Error("dispatcher.tick:", err)
				}
			}
		}
	}()
}

// Stop halts the tick loop and waits for an in-flight tick to finish.
func (d *Dispatcher) Stop() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	log.Info("dispatcher: stopped")
}

// Tick dispatches every schedule due at now and returns the assignments it
// created. A failing schedule is logged and skipped; the tick carries on with
// the rest.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) ([]model.Assignment, error) {
	due, err := d.store.DueSchedules(ctx, now)
	if err != nil {
		return nil, err
	}

	created := []model.Assignment{}
	for _, sc := range due {
		assignments, err := d.dispatch(ctx, sc, now)
		if err != nil {
			log.Errorf("dispatcher.schedule %d: %s", sc.ID, err)
			continue
		}
		created = append(created, assignments...)
	}
	return created, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, sc model.Schedule, now time.Time) ([]model.Assignment, error) {
	survey, err := d.store.GetSurvey(ctx, sc.SurveyID)
	if err != nil {
		return nil, err
	}

	created := []model.Assignment{}
	if survey.Status != model.SurveyPublished {
		log.Warnf("dispatcher.schedule %d: survey %d is %s, nothing to assign",
			sc.ID, survey.ID, survey.Status)
	} else {
		created, err = d.assign(ctx, sc, *survey)
		if err != nil {
			return nil, err
		}
	}

	// Advance the run pointers only if no concurrent tick got there first.
	// Losing the race is harmless: assignment creation above is idempotent.
	expected := sc.NextRun
	sc.LastRun = &now
	next, err := schedule.NextRun(sc, now)
	if err != nil {
		// a schedule with broken config would stay due forever; retire it
		log.Errorf("dispatcher.schedule %d: retiring: %s", sc.ID, err)
		next = nil
	}
	won, err := d.store.AdvanceSchedule(ctx, sc.ID, expected, now, next)
	if err != nil {
		return created, err
	}
	if !won {
		log.Debugf("dispatcher.schedule %d: already advanced by a concurrent tick", sc.ID)
	}
	return created, nil
}

func (d *Dispatcher) assign(ctx context.Context, sc model.Schedule, survey model.Survey) ([]model.Assignment, error) {
	pairings, err := d.store.Pairings(ctx)
	if err != nil {
		return nil, err
	}

	slot := *sc.NextRun
	created := []model.Assignment{}
	for _, p := range pairings {
		if !survey.Targets(p.Caregiver.Region) {
			continue
		}

		a := model.Assignment{
			SurveyID:    survey.ID,
			ScheduleID:  &sc.ID,
			CaregiverID: p.Caregiver.ID,
			PatientID:   p.PatientID,
			Status:      model.AssignmentPending,
			SlotAt:      slot,
			DueAt:       slot.Add(d.window),
		}
		ok, err := d.store.CreateAssignment(ctx, &a)
		if err != nil {
			log.Errorf("dispatcher.assign caregiver %d: %s", p.Caregiver.ID, err)
			continue
		}
		if !ok {
			// already dispatched for this slot
			continue
		}
		created = append(created, a)
		d.remind(ctx, p, survey, a)
	}
	return created, nil
}

func (d *Dispatcher) remind(ctx context.Context, p model.Pairing, survey model.Survey, a model.Assignment) {
	if d.notifier == nil {
		return
	}
	contact := p.Caregiver.Phone
	if contact == "" {
		contact = p.Caregiver.Email
	}
	err := d.notifier.SendReminder(ctx, Reminder{
		Contact:   contact,
		Caregiver: p.Caregiver.FullName,
		Survey:    survey.Title,
		DueAt:     a.DueAt,
	})
	if err != nil {
		// fire and forget: delivery problems never roll back the assignment
		log.Warnf("dispatcher.remind assignment %d: %s", a.ID, err)
	}
}
