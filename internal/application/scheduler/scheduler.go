package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lite-lake/infra-regsync/internal/application/registrar"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

// maxRounds bounds how many Poll calls one registry gets per run, so a
// registry that keeps reporting a stale queue depth cannot stall the run.
const maxRounds = 50

type Config struct {
	Registrar *registrar.Registrar
	// Registries limits the run to these accounts; empty means all.
	Registries []string
	Limit      int
	// MetricsPath, when set, receives the metrics textfile after every run.
	MetricsPath string
}

// Summary is the outcome of draining one registry.
type Summary struct {
	Registry      string
	Notifications int
	Acknowledged  int
	Skipped       int
	Rounds        int
	Err           error
}

// Scheduler drains the notification queue of every registry account on a
// cron schedule. Runs never overlap.
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	runMu    sync.Mutex
	onRun    func([]Summary)
	baseCtx  context.Context
	cancelFn context.CancelFunc
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Registrar == nil {
		return nil, fmt.Errorf("%w: registrar", domain.ErrRequired)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = domain.DefaultPollLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:      cfg,
		baseCtx:  ctx,
		cancelFn: cancel,
	}, nil
}

// OnRun registers a callback invoked with the summaries of every scheduled
// run.
func (s *Scheduler) OnRun(fn func([]Summary)) {
	s.onRun = fn
}

// Start schedules the drain with a standard five-field cron expression or a
// descriptor such as "@every 5m".
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := logger.WithOperation(s.baseCtx, "watch")
		summaries := s.RunOnce(ctx)
		if s.onRun != nil {
			s.onRun(summaries)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: schedule %q: %v", domain.ErrInvalidType, spec, err)
	}
	s.cron.Start()
	logger.Info("scheduler started", "schedule", spec, "registries", s.registries())
	return nil
}

// Stop halts the schedule, cancels a running drain between polls and waits
// for it to return.
func (s *Scheduler) Stop() {
	s.cancelFn()
	<-s.cron.Stop().Done()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) registries() []string {
	if len(s.cfg.Registries) > 0 {
		return s.cfg.Registries
	}
	return s.cfg.Registrar.Registries()
}

// RunOnce drains every registry in turn until its queue is empty, then
// writes the metrics textfile.
func (s *Scheduler) RunOnce(ctx context.Context) []Summary {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	names := s.registries()
	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, s.drain(ctx, name))
	}

	if s.cfg.MetricsPath != "" {
		if err := logger.WriteTextfile(s.cfg.MetricsPath); err != nil {
			logger.FromContext(ctx).Warn("metrics textfile write failed", "path", s.cfg.MetricsPath, "error", err)
		}
	}

	var errs []error
	total := 0
	for _, sum := range summaries {
		total += sum.Notifications
		if sum.Err != nil {
			errs = append(errs, sum.Err)
		}
	}
	log := logger.FromContext(ctx).With("registries", len(summaries), "notifications", total, "duration", time.Since(start))
	if err := errors.Join(errs...); err != nil {
		log.Warn("notification drain finished with errors", "error", err)
	} else {
		log.Info("notification drain finished")
	}
	return summaries
}

func (s *Scheduler) drain(ctx context.Context, name string) Summary {
	sum := Summary{Registry: name}
	p, err := s.cfg.Registrar.Provider(name)
	if err != nil {
		sum.Err = domain.WrapEntity("registry", name, err)
		return sum
	}
	for sum.Rounds < maxRounds {
		if err := ctx.Err(); err != nil {
			sum.Err = err
			return sum
		}
		res, err := p.Poll(ctx, s.cfg.Limit, time.Time{})
		sum.Rounds++
		if res != nil {
			sum.Notifications += len(res.Notifications)
			sum.Acknowledged += res.Acknowledged
			sum.Skipped += res.Skipped
		}
		if err != nil {
			sum.Err = domain.WrapEntity("registry", name, err)
			return sum
		}
		if res.Acknowledged == 0 || res.Remaining == 0 {
			return sum
		}
	}
	return sum
}
