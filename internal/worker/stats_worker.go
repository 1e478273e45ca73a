package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/quizdesk/quizdesk-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// StatsWorker drains the stats refresh queue and recomputes cached quiz
// statistics. Submitting and grading both enqueue the quiz ID; the worker
// dedupes a batch window so a burst of submissions costs one recompute.
type StatsWorker struct {
	submissionRepo *repository.SubmissionRepository
	rdb            *redis.Client
	cfg            *config.Config
	log            zerolog.Logger
}

func NewStatsWorker(submissionRepo *repository.SubmissionRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		submissionRepo: submissionRepo,
		rdb:            rdb,
		cfg:            cfg,
		log:            log.With().Str("component", "stats_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with dedup batching
// ----------------------------------------------------------------

func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	batch := make(map[string]struct{}, StatsBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flush(ctx, batch)
			batch = make(map[string]struct{}, StatsBatchSize)
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.RefreshStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			batch[item[1]] = struct{}{}
		}
	}
}

// flush recomputes and caches statistics for every quiz in the batch. A
// failed quiz is requeued so its stats eventually refresh.
func (w *StatsWorker) flush(ctx context.Context, batch map[string]struct{}) {
	for rawID := range batch {
		quizID, err := uuid.Parse(rawID)
		if err != nil {
			w.log.Error().Str("quiz_id", rawID).Msg("Invalid quiz ID in queue, dropping")
			continue
		}

		if err := w.refresh(ctx, quizID); err != nil {
			w.log.Error().Err(err).Str("quiz_id", rawID).Msg("Stats refresh failed, requeueing")
			w.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, rawID)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context, quizID uuid.UUID) error {
	stats, err := w.submissionRepo.Stats(ctx, quizID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	key := config.CacheKey.QuizStatsKey(quizID.String())
	if err := w.rdb.Set(ctx, key, payload, w.cfg.StatsCacheTTL).Err(); err != nil {
		return err
	}

	w.log.Debug().
		Str("quiz_id", quizID.String()).
		Int("submissions", stats.TotalSubmissions).
		Msg("Stats refreshed")
	return nil
}
