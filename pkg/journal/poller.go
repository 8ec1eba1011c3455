package journal

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/ioevents/pkg/async"
	"github.com/platinummonkey/ioevents/pkg/observability"
	"github.com/platinummonkey/ioevents/pkg/stream"
)

// Fetcher performs one journal fetch against an absolute URL
type Fetcher interface {
	FetchJournal(ctx context.Context, journalURL string) (*FetchResult, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, journalURL string) (*FetchResult, error)

// FetchJournal calls f
func (f FetcherFunc) FetchJournal(ctx context.Context, journalURL string) (*FetchResult, error) {
	return f(ctx, journalURL)
}

// CursorStore persists the next URL so a restarted poller resumes where it stopped
type CursorStore interface {
	// Load returns the saved URL or ErrCursorNotFound
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, nextURL string) error
}

// Options configures a Poller
type Options struct {
	// Interval is a fixed wait after an empty fetch; zero defers to Retry-After
	Interval time.Duration
	// IdleInterval is how often to recheck for subscribers, and the wait after
	// a failed fetch. Defaults to DefaultInterval.
	IdleInterval time.Duration

	// Store and StoreKey enable resuming from a saved cursor
	Store    CursorStore
	StoreKey string

	Clock   clockwork.Clock
	Logger  *logrus.Logger
	Metrics *observability.Metrics
}

// Poller turns a cursor based journal into a push stream. It only fetches
// while at least one subscriber is attached, never runs two fetches at once,
// and delivers events in server order.
type Poller struct {
	fetcher  Fetcher
	subject  *stream.Subject[Event]
	idle     time.Duration
	store    CursorStore
	storeKey string
	clock    clockwork.Clock
	logger   *logrus.Logger
	metrics  *observability.Metrics

	mu     sync.RWMutex
	cursor Cursor

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      <-chan struct{}
}

// NewPoller creates a poller starting at startURL. Call Start to run it.
func NewPoller(fetcher Fetcher, startURL string, opts Options) *Poller {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	p := &Poller{
		fetcher:  fetcher,
		subject:  stream.NewSubject[Event](),
		idle:     opts.IdleInterval,
		store:    opts.Store,
		storeKey: opts.StoreKey,
		clock:    opts.Clock,
		logger:   observability.OrDefault(opts.Logger),
		metrics:  opts.Metrics,
		cursor: Cursor{
			NextURL:      startURL,
			PollInterval: opts.Interval,
		},
	}
	p.subject.OnSubscriberChange(p.metrics.SetSubscribers)
	return p
}

// Subscribe attaches an observer. Fetch errors arrive on OnError and do not
// end the stream; OnComplete is called after Stop. A panicking callback is
// logged and the remaining subscribers still receive the value.
func (p *Poller) Subscribe(observer stream.Observer[Event]) *stream.Subscription {
	return p.subject.Subscribe(p.guard(observer))
}

// SubscribeFunc is Subscribe with plain callbacks
func (p *Poller) SubscribeFunc(onNext func(Event), onError func(error)) *stream.Subscription {
	return p.Subscribe(stream.Observer[Event]{OnNext: onNext, OnError: onError})
}

func (p *Poller) guard(observer stream.Observer[Event]) stream.Observer[Event] {
	if next := observer.OnNext; next != nil {
		observer.OnNext = func(e Event) {
			defer observability.RecoverPanic(p.logger, "journal subscriber")
			next(e)
		}
	}
	if onErr := observer.OnError; onErr != nil {
		observer.OnError = func(err error) {
			defer observability.RecoverPanic(p.logger, "journal subscriber")
			onErr(err)
		}
	}
	return observer
}

// SubscriberCount returns the number of attached subscribers
func (p *Poller) SubscriberCount() int {
	return p.subject.Count()
}

// Cursor returns a copy of the current cursor
func (p *Poller) Cursor() Cursor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cursor
}

// Start launches the polling loop. Later calls are no-ops.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.cancel = cancel
		p.done = async.SafeGo(ctx, p.logger, 0, "journal poller", p.run)
	})
}

// Stop ends the loop, waits for an in-flight fetch to return and completes
// all subscribers.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.startOnce.Do(func() {})
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
		p.subject.Complete()
	})
}

// Done is closed when the loop has exited. Nil before Start.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) error {
	defer p.subject.Complete()

	p.restore(ctx)

	var delay time.Duration
	for {
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}

		if p.subject.Count() == 0 {
			delay = p.idle
			continue
		}

		delay = p.poll(ctx)
	}
}

// sleep waits d on the poller clock. A zero wait only checks for cancellation.
func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// poll runs one fetch cycle and returns the wait before the next check
func (p *Poller) poll(ctx context.Context) time.Duration {
	cursor := p.Cursor()
	log := p.logger.WithField("journal", redact(cursor.NextURL))

	ctx, span := observability.Tracer().Start(ctx, "journal.poll",
		trace.WithAttributes(attribute.String("journal.url", redact(cursor.NextURL))))
	defer span.End()

	result, err := p.fetcher.FetchJournal(ctx, cursor.NextURL)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return 0
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal fetch failed")
		p.metrics.ObservePoll("error", 0)
		log.WithError(err).Error("Journal fetch failed")

		p.subject.Error(err)
		return p.idle
	}
	if result == nil {
		result = &FetchResult{}
	}

	next, moved := p.advance(result, log)

	span.SetAttributes(attribute.Int("journal.events", len(result.Events)))

	if len(result.Events) > 0 {
		p.metrics.ObservePoll("events", len(result.Events))
		log.WithField("count", len(result.Events)).Debug("Delivering journal events")
		for _, event := range result.Events {
			p.subject.Next(event)
		}
		// The cursor is persisted only once the whole batch is delivered
		p.persist(ctx, next, moved, log)
		// More events may be waiting server side
		return 0
	}

	p.persist(ctx, next, moved, log)
	p.metrics.ObservePoll("empty", 0)
	wait := NextWait(cursor.PollInterval, result.RetryAfter, p.idle)
	log.WithField("wait", wait).Debug("No journal events")
	return wait
}

// advance moves the in-memory cursor and reports the new next URL
func (p *Poller) advance(result *FetchResult, log *logrus.Entry) (string, bool) {
	p.mu.Lock()
	moved := p.cursor.Advance(result)
	next := p.cursor.NextURL
	p.mu.Unlock()

	if !moved {
		log.Debug("Journal response had no next link, keeping cursor")
	}
	return next, moved
}

// persist saves next to the cursor store after a batch has been delivered
func (p *Poller) persist(ctx context.Context, next string, moved bool, log *logrus.Entry) {
	if !moved || p.store == nil {
		return
	}
	if err := p.store.Save(ctx, p.storeKey, next); err != nil {
		log.WithError(err).Warn("Failed to save journal cursor")
	}
}

func (p *Poller) restore(ctx context.Context) {
	if p.store == nil {
		return
	}

	saved, err := p.store.Load(ctx, p.storeKey)
	switch {
	case errors.Is(err, ErrCursorNotFound):
		return
	case err != nil:
		p.logger.WithError(err).WithField("key", p.storeKey).Warn("Failed to load journal cursor, starting from configured URL")
		return
	case saved == "":
		return
	}

	p.mu.Lock()
	p.cursor.NextURL = saved
	p.mu.Unlock()
	p.logger.WithField("key", p.storeKey).Info("Resuming journal from saved cursor")
}

// redact keeps scheme, host and path; journal query strings carry positions
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
