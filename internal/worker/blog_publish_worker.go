package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Publisher publishes scheduled posts that are due.
type Publisher interface {
	PublishDue(ctx context.Context) (int, error)
}

// BlogPublishWorker periodically publishes scheduled blog posts.
type BlogPublishWorker struct {
	publisher Publisher
	interval  time.Duration
}

// NewBlogPublishWorker constructs a BlogPublishWorker.
func NewBlogPublishWorker(publisher Publisher, interval time.Duration) *BlogPublishWorker {
	return &BlogPublishWorker{publisher: publisher, interval: interval}
}

// Start runs until ctx is canceled.
func (w *BlogPublishWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting blog publish worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Blog publish worker stopped")
			return
		}
	}
}

func (w *BlogPublishWorker) run(ctx context.Context) {
	n, err := w.publisher.PublishDue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to publish scheduled posts")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("Published scheduled posts")
	}
}
