package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

const (
	ResultSent    = "sent"
	ResultStale   = "stale"
	ResultError   = "error"
	ResultDropped = "dropped"
)

type JobSource interface {
	ListEnabledJobs(ctx context.Context) ([]*domain.ScheduledJob, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, habitID string) error
}

// Recorder receives dispatch outcomes and the size of the live schedule.
type Recorder interface {
	ObserveDispatch(result string)
	SetScheduled(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDispatch(string) {}
func (nopRecorder) SetScheduled(int)       {}

type ReminderJob struct {
	HabitID string
}

type entry struct {
	id      cron.EntryID
	spec    string
	habitID string
}

// ReminderWorker mirrors the enabled periodic jobs into a cron runtime.
// Firings are queued and delivered by a single background consumer.
type ReminderWorker struct {
	source     JobSource
	dispatcher Dispatcher
	recorder   Recorder
	log        zerolog.Logger

	resync   time.Duration
	timeout  time.Duration
	jobs     chan ReminderJob
	refresh  chan struct{}
	cron     *cron.Cron
	location *time.Location

	mu      sync.Mutex
	entries map[string]entry
}

type Option func(*ReminderWorker)

func WithLocation(loc *time.Location) Option {
	return func(w *ReminderWorker) {
		if loc != nil {
			w.location = loc
		}
	}
}

func WithResyncInterval(d time.Duration) Option {
	return func(w *ReminderWorker) { w.resync = d }
}

func WithQueueSize(n int) Option {
	return func(w *ReminderWorker) {
		if n > 0 {
			w.jobs = make(chan ReminderJob, n)
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(w *ReminderWorker) {
		if r != nil {
			w.recorder = r
		}
	}
}

func NewReminderWorker(source JobSource, dispatcher Dispatcher, log zerolog.Logger, opts ...Option) *ReminderWorker {
	w := &ReminderWorker{
		source:     source,
		dispatcher: dispatcher,
		recorder:   nopRecorder{},
		log:        log.With().Str("component", "reminder_worker").Logger(),
		resync:     time.Minute,
		timeout:    30 * time.Second,
		jobs:       make(chan ReminderJob, 100),
		refresh:    make(chan struct{}, 1),
		location:   time.UTC,
		entries:    make(map[string]entry),
	}
	for _, opt := range opts {
		opt(w)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	w.cron = cron.New(cron.WithParser(parser), cron.WithLocation(w.location))
	return w
}

func (w *ReminderWorker) Start(ctx context.Context) {
	if err := w.Sync(ctx); err != nil {
		w.log.Error().Err(err).Msg("initial job sync failed")
	}
	w.cron.Start()

	go func() {
		w.log.Info().Str("tz", w.location.String()).Msg("reminder worker started")

		var tick <-chan time.Time
		if w.resync > 0 {
			ticker := time.NewTicker(w.resync)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-w.refresh:
				w.syncAndLog(ctx)
			case <-tick:
				w.syncAndLog(ctx)
			case <-ctx.Done():
				<-w.cron.Stop().Done()
				w.log.Info().Msg("reminder worker shutting down")
				return
			}
		}
	}()
}

// Refresh asks for a resync on the next loop iteration. Calls made while a
// resync is already pending are merged.
func (w *ReminderWorker) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

func (w *ReminderWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- ReminderJob{HabitID: habitID}:
	default:
		w.log.Warn().Str("habit_id", habitID).Msg("reminder queue full, dropping firing")
		w.recorder.ObserveDispatch(ResultDropped)
	}
}

func (w *ReminderWorker) syncAndLog(ctx context.Context) {
	if err := w.Sync(ctx); err != nil {
		w.log.Error().Err(err).Msg("job sync failed")
	}
}

// Sync reconciles the cron entries with the enabled jobs of the registry.
func (w *ReminderWorker) Sync(ctx context.Context) error {
	jobs, err := w.source.ListEnabledJobs(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wanted := make(map[string]*domain.ScheduledJob, len(jobs))
	for _, j := range jobs {
		wanted[j.Name] = j
	}

	for name, e := range w.entries {
		j, ok := wanted[name]
		if ok && j.Cron.String() == e.spec {
			continue
		}
		w.cron.Remove(e.id)
		delete(w.entries, name)
	}

	for name, j := range wanted {
		if _, ok := w.entries[name]; ok {
			continue
		}
		habitID, err := j.HabitID()
		if err != nil {
			w.log.Warn().Err(err).Str("job", name).Msg("skipping job with bad args")
			continue
		}

		spec := j.Cron.String()
		id, err := w.cron.AddFunc(spec, func() { w.Enqueue(habitID) })
		if err != nil {
			w.log.Warn().Err(err).Str("job", name).Str("cron", spec).Msg("skipping job with bad schedule")
			continue
		}
		w.entries[name] = entry{id: id, spec: spec, habitID: habitID}
	}

	w.recorder.SetScheduled(len(w.entries))
	w.log.Debug().Int("jobs", len(w.entries)).Msg("jobs synced")
	return nil
}

// Scheduled returns the live cron spec of every job, keyed by job name.
func (w *ReminderWorker) Scheduled() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]string, len(w.entries))
	for name, e := range w.entries {
		out[name] = e.spec
	}
	return out
}

func (w *ReminderWorker) processJob(ctx context.Context, job ReminderJob) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.dispatcher.Dispatch(ctx, job.HabitID)
	switch {
	case err == nil:
		w.recorder.ObserveDispatch(ResultSent)
	case errors.Is(err, domain.ErrReminderStale):
		w.log.Warn().Str("habit_id", job.HabitID).Msg("stale reminder")
		w.recorder.ObserveDispatch(ResultStale)
	default:
		w.log.Error().Err(err).Str("habit_id", job.HabitID).Msg("reminder dispatch failed")
		w.recorder.ObserveDispatch(ResultError)
	}
}
