package inbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
)

const DefaultInterval = 5 * time.Second

// Fetcher is the read side of a conversation, oldest message first.
type Fetcher interface {
	FetchMessages(ctx context.Context, applicationID string) ([]*market.Message, error)
}

// Poller refreshes a Thread on a fixed schedule. Ticks never overlap.
type Poller struct {
	cron     *cron.Cron
	fetcher  Fetcher
	thread   *Thread
	logger   *zap.Logger
	interval time.Duration
	onUpdate func(fresh []*market.Message)

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewPoller creates a poller for thread. onUpdate, when set, receives the
// messages not seen by earlier polls.
func NewPoller(fetcher Fetcher, thread *Thread, interval time.Duration, log *zap.Logger, onUpdate func([]*market.Message)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(logger.ApplicationID(thread.ApplicationID()))

	cronLogger := cronZapLogger{logger: log}
	return &Poller{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		fetcher:  fetcher,
		thread:   thread,
		logger:   log,
		interval: interval,
		onUpdate: onUpdate,
		seen:     make(map[string]struct{}),
	}
}

// Poll fetches the conversation once and replaces the thread. On failure the
// previous state is kept.
func (p *Poller) Poll(ctx context.Context) error {
	messages, err := p.fetcher.FetchMessages(ctx, p.thread.ApplicationID())
	if err != nil {
		p.logger.Warn("polling messages failed; keeping previous state", zap.Error(err))
		return err
	}

	p.thread.Replace(messages)

	p.mu.Lock()
	fresh := make([]*market.Message, 0)
	for _, m := range messages {
		if m == nil || m.ID == "" {
			continue
		}
		if _, ok := p.seen[m.ID]; ok {
			continue
		}
		p.seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	p.mu.Unlock()

	p.logger.Debug("messages polled", zap.Int("messages", len(messages)), zap.Int("new", len(fresh)))

	if p.onUpdate != nil && len(fresh) > 0 {
		p.onUpdate(fresh)
	}
	return nil
}

// Start polls once, then on every interval until Stop or ctx is done.
func (p *Poller) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, func() {
		_ = p.Poll(ctx)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	_ = p.Poll(ctx)

	p.cron.Start()
	p.logger.Debug("poller started", zap.String("spec", spec))

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts the schedule and waits for a running poll to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

type cronZapLogger struct {
	logger *zap.Logger
}

func (l cronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
