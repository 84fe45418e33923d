// Package scraper drives the incremental, resumable channel ingestion:
// checkpoint-based resume, author privilege filtering, message
// classification and flood-wait retry.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/x5gtrn/tg-channel-scraper/internal/logger"
	"github.com/x5gtrn/tg-channel-scraper/internal/telegram"
)

// maxFloodRetries bounds how many throttling events a single run absorbs
// before giving up. Each retry restarts the walk from the last durably
// saved checkpoint.
const maxFloodRetries = 5

// progressEvery controls how often the walk reports progress.
const progressEvery = 100

// MessageSource is the remote collaborator the pipeline walks. Count and
// Iter are independent stream requests over the same ascending, exclusive
// lower bound.
type MessageSource interface {
	ResolveChannel(ctx context.Context, ref string) (*telegram.Channel, error)
	CountMessages(ctx context.Context, ch *telegram.Channel, minID int) (int, error)
	IterMessages(ctx context.Context, ch *telegram.Channel, minID int, fn func(telegram.Message) error) error
	IsAdmin(ctx context.Context, ch *telegram.Channel, userID int64) (bool, error)
	SelfID() int64
}

// CheckpointStore is the durable resume cursor. It is the sole source of
// truth for resume position.
type CheckpointStore interface {
	Load() int
	Save(id int) error
	Clear() error
}

// Options tunes a Service.
type Options struct {
	// RateLimitDelay is applied between consecutive stream items.
	RateLimitDelay time.Duration
	// CheckpointInterval is the number of appended records between
	// checkpoint writes. Defaults to 100.
	CheckpointInterval int
}

// Service is the ingestion pipeline.
type Service struct {
	src         MessageSource
	checkpoints CheckpointStore
	delay       time.Duration
	interval    int
	log         *logger.Logger

	// sleep is swappable so tests do not serve real flood waits
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates a pipeline over the given source and checkpoint store.
func NewService(src MessageSource, checkpoints CheckpointStore, opts Options) *Service {
	interval := opts.CheckpointInterval
	if interval <= 0 {
		interval = 100
	}

	return &Service{
		src:         src,
		checkpoints: checkpoints,
		delay:       opts.RateLimitDelay,
		interval:    interval,
		log:         logger.Get(),
		sleep:       sleepCtx,
	}
}

// runStats tracks per-run counters for the final summary.
type runStats struct {
	processed           int
	produced            int
	skippedSelf         int
	skippedService      int
	skippedUnprivileged int
}

// Run walks the channel oldest-to-newest from the saved checkpoint and
// returns the records produced. The caller writes them to the sink and
// clears the checkpoint afterwards; Run itself never clears it, so an
// interrupted or failed run resumes from the last saved cursor.
func (s *Service) Run(ctx context.Context, channelRef string, excludeSelf bool) ([]Record, error) {
	log := s.log.With().Str("run_id", uuid.NewString()[:8]).Logger()

	ch, err := s.src.ResolveChannel(ctx, channelRef)
	if err != nil {
		return nil, fmt.Errorf("resolve channel %q: %w", channelRef, err)
	}

	base := s.checkpoints.Load()
	log.Info().
		Str("channel", ch.Title).
		Int64("channel_id", ch.ID).
		Int("resume_from", base).
		Msg("starting ingestion")

	total, err := s.countPending(ctx, &log, ch, base)
	if err != nil {
		return nil, err
	}
	log.Info().Int("pending", total).Msg("counted pending messages")

	selfID := s.src.SelfID()
	privilege := NewPrivilegeChecker(s.src)

	var (
		records   []Record
		stats     runStats
		lastSaved = base

		// snapshot at the last successful checkpoint write; a flood-wait
		// retry rolls back to exactly this point
		flushedRecords int
		flushedStats   runStats
	)

	for attempt := 0; ; attempt++ {
		walkErr := s.src.IterMessages(ctx, ch, lastSaved, func(msg telegram.Message) error {
			stats.processed++

			switch {
			case excludeSelf && msg.SenderID != nil && *msg.SenderID == selfID:
				stats.skippedSelf++
			case msg.Text == "" && msg.Media == nil:
				// bare service message, dropped silently
				stats.skippedService++
			case !privilege.IsPrivileged(ctx, ch, msg.SenderID):
				stats.skippedUnprivileged++
			default:
				records = append(records, Classify(msg))
				stats.produced++
				if len(records)%s.interval == 0 {
					if err := s.checkpoints.Save(msg.ID); err != nil {
						log.Warn().Err(err).Int("message_id", msg.ID).Msg("checkpoint write failed")
					} else {
						lastSaved = msg.ID
						flushedRecords = len(records)
						flushedStats = stats
					}
				}
			}

			if stats.processed%progressEvery == 0 || stats.processed == total {
				log.Info().Int("processed", stats.processed).Int("total", total).Msg("progress")
			}

			return s.sleep(ctx, s.delay)
		})
		if walkErr == nil {
			break
		}

		wait := telegram.FloodWaitSeconds(walkErr)
		if wait <= 0 || attempt >= maxFloodRetries {
			return nil, fmt.Errorf("walk channel history: %w", walkErr)
		}

		// Drop everything accumulated past the last checkpoint write; the
		// retry walks those messages again and reproduces the records
		// identically.
		records = records[:flushedRecords]
		stats = flushedStats
		log.Warn().Int("wait_seconds", wait).Int("attempt", attempt+1).
			Msg("rate limited, waiting before resuming from checkpoint")
		if err := s.sleep(ctx, time.Duration(wait)*time.Second); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("processed", stats.processed).
		Int("records", stats.produced).
		Int("skipped_self", stats.skippedSelf).
		Int("skipped_service", stats.skippedService).
		Int("skipped_unprivileged", stats.skippedUnprivileged).
		Msg("ingestion completed")

	return records, nil
}

// countPending performs the dry pass sizing the progress indicator. It is
// a plain count of stream items above the resume point, with the same
// flood-wait handling as the walk.
func (s *Service) countPending(ctx context.Context, log *zerolog.Logger, ch *telegram.Channel, minID int) (int, error) {
	for attempt := 0; ; attempt++ {
		total, err := s.src.CountMessages(ctx, ch, minID)
		if err == nil {
			return total, nil
		}

		wait := telegram.FloodWaitSeconds(err)
		if wait <= 0 || attempt >= maxFloodRetries {
			return 0, fmt.Errorf("count pending messages: %w", err)
		}
		log.Warn().Int("wait_seconds", wait).Msg("rate limited during count, waiting")
		if err := s.sleep(ctx, time.Duration(wait)*time.Second); err != nil {
			return 0, err
		}
	}
}

// sleepCtx sleeps for d, returning early if ctx is done. A zero delay
// still observes cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
