package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-pagekit/internal/commands"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/mediausage"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// Refresher rebuilds the media usage index of one project.
type Refresher interface {
	RefreshAllMediaUsage(ctx context.Context, projectID string) (mediausage.Result, error)
}

// ProjectSource lists the projects a scheduled run covers.
type ProjectSource interface {
	Projects() ([]string, error)
}

// StaticProjects is a fixed ProjectSource.
type StaticProjects []string

// Projects implements ProjectSource.
func (p StaticProjects) Projects() ([]string, error) {
	return append([]string(nil), p...), nil
}

// Worker runs full media usage rebuilds, either on demand or on a cron
// schedule.
type Worker struct {
	refresher Refresher
	projects  ProjectSource
	audit     AuditRecorder
	logger    interfaces.Logger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

type Option func(*Worker)

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(w *Worker) {
		w.audit = recorder
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(w *Worker) {
		w.logger = logging.Fallback(logger)
	}
}

func NewWorker(refresher Refresher, projects ProjectSource, opts ...Option) *Worker {
	w := &Worker{
		refresher: refresher,
		projects:  projects,
		logger:    logging.NoOp(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process rebuilds every project once. A failing project does not stop the
// run; all failures are joined into the returned error.
func (w *Worker) Process(ctx context.Context) error {
	if w.refresher == nil {
		return errors.New("jobs: refresher is nil")
	}
	if w.projects == nil {
		return errors.New("jobs: project source is nil")
	}
	projects, err := w.projects.Projects()
	if err != nil {
		return fmt.Errorf("jobs: list projects: %w", err)
	}

	var errs []error
	for _, projectID := range projects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := w.refresh(ctx, projectID); err != nil {
			errs = append(errs, fmt.Errorf("project %q: %w", projectID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Worker) refresh(ctx context.Context, projectID string) error {
	logger := logging.WithProjectContext(w.logger, projectID, "scheduled_refresh")
	result, err := w.refresher.RefreshAllMediaUsage(ctx, projectID)

	event := AuditEvent{
		EntityType: "project",
		EntityID:   projectID,
		OccurredAt: w.now(),
		Metadata:   map[string]any{},
	}
	switch {
	case err != nil:
		event.Action = ActionFailed
		event.Metadata["error"] = err.Error()
		logger.Error("jobs.refresh.failed", "error", err)
	case !result.Success:
		event.Action = ActionSkipped
		event.Metadata["message"] = result.Message
		logger.Warn("jobs.refresh.skipped", "message", result.Message)
	default:
		event.Action = ActionRefreshed
		event.Metadata["message"] = result.Message
		event.Metadata["in_use"] = len(result.MediaPaths)
		logger.Info("jobs.refresh.completed", "in_use", len(result.MediaPaths))
	}
	if w.audit != nil {
		if auditErr := w.audit.Record(ctx, event); auditErr != nil {
			logger.Warn("jobs.audit.record_failed", "error", auditErr)
		}
	}
	return err
}

// Start schedules Process under a standard cron expression.
func (w *Worker) Start(schedule string) error {
	c := w.scheduler()
	if _, err := c.AddFunc(schedule, func() {
		if err := w.Process(context.Background()); err != nil {
			w.logger.Error("jobs.process.failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("jobs: schedule %q: %w", schedule, err)
	}
	c.Start()
	return nil
}

// Registrar returns a commands.CronRegistrar backed by the worker's cron
// instance. Handlers must be func() error or func(); the scheduler is started
// on first registration.
func (w *Worker) Registrar() commands.CronRegistrar {
	return func(cfg command.HandlerConfig, handler any) error {
		var run func() error
		switch fn := handler.(type) {
		case func() error:
			run = fn
		case func():
			run = func() error { fn(); return nil }
		default:
			return fmt.Errorf("jobs: unsupported cron handler %T", handler)
		}
		c := w.scheduler()
		if _, err := c.AddFunc(cfg.Expression, func() {
			if err := run(); err != nil {
				w.logger.Error("jobs.cron.handler_failed", "expression", cfg.Expression, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("jobs: schedule %q: %w", cfg.Expression, err)
		}
		c.Start()
		return nil
	}
}

// Stop halts the scheduler and waits for running jobs.
func (w *Worker) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (w *Worker) scheduler() *cron.Cron {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron == nil {
		w.cron = cron.New()
	}
	return w.cron
}
