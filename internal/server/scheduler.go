package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RecrawlFunc fetches metadata that is still missing
type RecrawlFunc func(ctx context.Context) error

// Scheduler runs a recrawl on a cron schedule and reloads the dashboard after it
type Scheduler struct {
	spec    string
	recrawl RecrawlFunc
	reload  func() (int, error)
	logger  *zap.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewScheduler creates a scheduler for spec (standard five-field cron syntax)
func NewScheduler(spec string, recrawl RecrawlFunc, reload func() (int, error), logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		spec:    spec,
		recrawl: recrawl,
		reload:  reload,
		logger:  logger,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the job and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		return fmt.Errorf("parse recrawl schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("recrawl scheduled", zap.String("spec", s.spec))
	return nil
}

// RunOnce recrawls and reloads immediately
func (s *Scheduler) RunOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recrawl(s.ctx); err != nil {
		s.logger.Error("scheduled recrawl", zap.Error(err))
		if s.ctx.Err() != nil {
			return
		}
	}
	if s.reload != nil {
		if _, err := s.reload(); err != nil {
			s.logger.Error("reload after recrawl", zap.Error(err))
		}
	}
}

// Stop cancels a running recrawl and waits for it to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
