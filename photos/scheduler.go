package photos

import (
	"context"
	"fmt"
	"log"

	"github.com/mbroe/fotostrom/jobs"
)

const TaskTypeImport = "IMPORT_FEED"

// TaskEnqueuer is the contract the scheduler requires from the task
// runtime: at most one pending/in-flight task per unique key, and retries
// with backoff when a task fails unexpectedly.
type TaskEnqueuer interface {
	Enqueue(taskType string, uniqueKey string, run jobs.TaskFunc) bool
}

// RefreshScheduler fans one import task out per registered feed source.
// It performs no fetching itself.
type RefreshScheduler struct {
	sources  SourceListing
	enqueuer TaskEnqueuer
	service  *PhotoService
}

func NewRefreshScheduler(sources SourceListing, enqueuer TaskEnqueuer, service *PhotoService) *RefreshScheduler {
	return &RefreshScheduler{
		sources:  sources,
		enqueuer: enqueuer,
		service:  service,
	}
}

// Refresh enqueues one import task per source, keyed by feed url. A source
// whose import is still outstanding is not enqueued again. An empty
// listing is a no-op.
func (s *RefreshScheduler) Refresh(ctx context.Context) error {
	sources, err := s.sources.GetSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to get feed sources: %w", err)
	}
	enqueued := 0
	for _, source := range sources {
		if source.Disabled {
			continue
		}
		if source.Url == "" {
			log.Printf("not importing %v: url is empty", source.Name)
			continue
		}
		feedUrl := source.Url
		ok := s.enqueuer.Enqueue(TaskTypeImport, feedUrl, func() error {
			s.service.ImportFeed(context.Background(), feedUrl)
			return nil
		})
		if ok {
			enqueued++
		}
	}
	log.Printf("Refresh: enqueued %v import tasks for %v sources", enqueued, len(sources))
	return nil
}
