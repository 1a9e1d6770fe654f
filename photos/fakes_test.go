package photos

import (
	"context"
	"sync"

	"github.com/mbroe/fotostrom/jobs"
	"github.com/mmcdole/gofeed"
)

type fakeStore struct {
	mu        sync.Mutex
	photos    map[string]PhotoDto
	existsErr error
	createErr error
	creates   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{photos: make(map[string]PhotoDto)}
}

func (f *fakeStore) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.photos[id]
	return ok, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*PhotoDto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	photo, ok := f.photos[id]
	if !ok {
		return nil, nil
	}
	return &photo, nil
}

func (f *fakeStore) Create(ctx context.Context, photo PhotoDto) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.photos[photo.Id]; ok {
		return ErrAlreadyExists
	}
	f.photos[photo.Id] = photo
	return nil
}

type fakeFeedClient struct {
	feeds map[string]*gofeed.Feed
	err   error
}

func (f *fakeFeedClient) Fetch(ctx context.Context, feedUrl string) (*gofeed.Feed, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.feeds[feedUrl], nil
}

type fakeListing struct {
	sources []FeedSource
	err     error
}

func (f *fakeListing) GetSources(ctx context.Context) ([]FeedSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sources, nil
}

// fakeEnqueuer mimics the queue's uniqueness contract without running
// anything: a key stays outstanding until released.
type fakeEnqueuer struct {
	mu       sync.Mutex
	enqueues []string
	inFlight map[string]struct{}
}

func newFakeEnqueuer() *fakeEnqueuer {
	return &fakeEnqueuer{inFlight: make(map[string]struct{})}
}

func (f *fakeEnqueuer) Enqueue(taskType string, uniqueKey string, run jobs.TaskFunc) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inFlight[uniqueKey]; ok {
		return false
	}
	f.inFlight[uniqueKey] = struct{}{}
	f.enqueues = append(f.enqueues, uniqueKey)
	return true
}
