package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/events"
	"github.com/platinummonkey/ioevents/pkg/journal"
	"github.com/platinummonkey/ioevents/pkg/storage"
)

// maxDrainPages bounds one drain so a busy journal cannot hold a run forever
const maxDrainPages = 100

func newJournalCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "journal",
		Description: "Read events from a journal",
		Flags:       newFlagSet("journal", env),
	}

	journalURL := cmd.Flags.String("url", "", "Journal URL (default IOEVENTS_JOURNAL_URL)")
	latest := cmd.Flags.Bool("latest", false, "Start from the newest event")
	since := cmd.Flags.String("since", "", "Start after this position")
	limit := cmd.Flags.Int("limit", 0, "Maximum events per fetch")
	follow := cmd.Flags.Bool("follow", false, "Keep polling and print events as they arrive")
	count := cmd.Flags.Int("count", 0, "With -follow, stop after this many events")
	interval := cmd.Flags.Duration("interval", 0, "Fixed wait between empty reads (default follows Retry-After)")
	consumerKey := cmd.Flags.String("consumer-key", "", "Resume from and save the cursor under this key")
	schedule := cmd.Flags.String("schedule", "", `Cron schedule for draining the journal, e.g. "*/5 * * * *"`)

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *follow && *schedule != "" {
			return fmt.Errorf("-follow and -schedule cannot be combined")
		}

		cfg, components, logger, err := env.connect(ctx)
		if err != nil {
			return err
		}
		defer components.Close()

		target := firstNonEmpty(*journalURL, cfg.Journal.URL)
		if target == "" {
			return fmt.Errorf("journal URL is required")
		}
		key := firstNonEmpty(*consumerKey, cfg.Journal.ConsumerKey)
		opts := events.JournalOptions{
			Latest: *latest || cfg.Journal.Latest,
			Since:  firstNonEmpty(*since, cfg.Journal.Since),
			Limit:  firstPositive(*limit, cfg.Journal.Limit),
		}

		reader := &journalReader{
			client: components.Client,
			store:  components.Store,
			key:    key,
			out:    json.NewEncoder(env.Out),
			logger: logger,
		}

		switch {
		case *follow:
			poll := firstPositiveDuration(*interval, cfg.Journal.PollInterval)
			return reader.follow(ctx, target, opts, poll, *count)
		case *schedule != "":
			return reader.scheduled(ctx, *schedule, target, opts)
		default:
			_, err := reader.drain(ctx, target, opts, 1)
			return err
		}
	}

	return cmd
}

// journalReader prints journal events as JSON lines
type journalReader struct {
	client *events.Client
	store  storage.CursorStore
	key    string
	logger *logrus.Logger

	mu  sync.Mutex
	out *json.Encoder
}

func (r *journalReader) print(event journal.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Encode(event)
}

// start returns the saved cursor for the consumer key, or target with opts
func (r *journalReader) start(ctx context.Context, target string, opts events.JournalOptions) (string, events.JournalOptions) {
	if r.key == "" {
		return target, opts
	}
	saved, err := r.store.Load(ctx, r.key)
	if err != nil {
		if !errors.Is(err, storage.ErrCursorNotFound) {
			r.logger.WithError(err).Warn("Failed to load journal cursor, starting from the configured URL")
		}
		return target, opts
	}
	// A saved next link already carries its query
	return saved, events.JournalOptions{}
}

// drain fetches up to pages batches, following next links until a fetch
// returns no events, and returns the number of events printed
func (r *journalReader) drain(ctx context.Context, target string, opts events.JournalOptions, pages int) (int, error) {
	next, opts := r.start(ctx, target, opts)

	printed := 0
	for page := 0; page < pages; page++ {
		result, err := r.client.GetEventsFromJournal(ctx, next, opts, false)
		if err != nil {
			return printed, err
		}
		opts = events.JournalOptions{}

		for _, event := range result.Events {
			if err := r.print(event); err != nil {
				return printed, err
			}
			printed++
		}

		link, ok := result.Next()
		if ok {
			next = link
			r.save(ctx, next)
			r.logger.WithField("next", next).Debug("Journal cursor advanced")
		}
		if !ok || len(result.Events) == 0 {
			break
		}
	}
	return printed, nil
}

func (r *journalReader) save(ctx context.Context, next string) {
	if r.key == "" {
		return
	}
	if err := r.store.Save(ctx, r.key, next); err != nil {
		r.logger.WithError(err).Warn("Failed to save journal cursor")
	}
}

// follow subscribes to a poller until ctx ends or count events were printed
func (r *journalReader) follow(ctx context.Context, target string, opts events.JournalOptions, interval time.Duration, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	poller := r.client.EventsObservableFromJournal(ctx, target, opts, events.PollingOptions{
		Interval: interval,
		StoreKey: r.key,
	})
	defer poller.Stop()

	var printed int
	var printErr error
	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			printErr = err
			cancel()
		})
	}

	sub := poller.SubscribeFunc(
		func(event journal.Event) {
			if err := r.print(event); err != nil {
				finish(err)
				return
			}
			r.mu.Lock()
			printed++
			reached := count > 0 && printed >= count
			r.mu.Unlock()
			if reached {
				finish(nil)
			}
		},
		func(err error) {
			r.logger.WithError(err).Warn("Journal fetch failed, retrying")
		},
	)
	defer sub.Unsubscribe()

	<-ctx.Done()
	return printErr
}

// scheduled drains the journal on a cron schedule until ctx ends
func (r *journalReader) scheduled(ctx context.Context, spec, target string, opts events.JournalOptions) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		n, err := r.drain(ctx, target, opts, maxDrainPages)
		if err != nil {
			r.logger.WithError(err).Error("Scheduled journal drain failed")
			return
		}
		r.logger.WithField("events", n).Info("Scheduled journal drain finished")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	scheduler.Start()
	r.logger.WithField("schedule", spec).Info("Journal drain scheduled")

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

