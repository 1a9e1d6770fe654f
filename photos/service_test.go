package photos

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func feedEntry(guid string, title string, published time.Time) *gofeed.Item {
	return &gofeed.Item{
		GUID:            guid,
		Title:           title,
		Link:            "https://example.org/photos/" + guid,
		PublishedParsed: &published,
	}
}

const testFeedUrl = "https://example.org/feed"

func newTestService(store PhotoStore, client FeedClient) *PhotoService {
	return NewPhotoService(nil, store, nil, nil, client, nil)
}

func TestImportFeedCreatesNewEntries(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 6, 15, 13, 37, 0, 0, time.UTC)
	store := newFakeStore()
	client := &fakeFeedClient{feeds: map[string]*gofeed.Feed{
		testFeedUrl: {Items: []*gofeed.Item{
			feedEntry("guid1", "first photo", published),
			feedEntry("guid2", "second photo", published),
		}},
	}}
	service := newTestService(store, client)

	summary := service.ImportFeed(context.Background(), testFeedUrl)

	if summary.Created != 2 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("got summary %+v, want 2 created", summary)
	}
	for _, tt := range []struct {
		id    string
		title string
	}{
		{"guid1", "first photo"},
		{"guid2", "second photo"},
	} {
		photo, err := store.Get(context.Background(), tt.id)
		if err != nil {
			t.Fatalf("error getting %v: %v", tt.id, err)
		}
		if photo == nil {
			t.Fatalf("photo %v was not stored", tt.id)
		}
		if photo.Title != tt.title {
			t.Errorf("got title %q, want %q", photo.Title, tt.title)
		}
		if photo.Popularity != 0 {
			t.Errorf("got popularity %v, want 0", photo.Popularity)
		}
		wantTakenAt := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
		if !photo.TakenAt.Equal(wantTakenAt) {
			t.Errorf("got takenAt %v, want %v", photo.TakenAt, wantTakenAt)
		}
	}
}

func TestImportFeedLeavesExistingEntriesUntouched(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 6, 15, 13, 37, 0, 0, time.UTC)
	store := newFakeStore()
	existing := PhotoDto{
		Id:         "already exists",
		Title:      "original title",
		Album:      "album3",
		Popularity: 42,
		Tags:       StringList{"keeper"},
	}
	store.photos[existing.Id] = existing

	client := &fakeFeedClient{feeds: map[string]*gofeed.Feed{
		testFeedUrl: {Items: []*gofeed.Item{
			feedEntry("already exists", "a brand new title", published),
		}},
	}}
	service := newTestService(store, client)

	summary := service.ImportFeed(context.Background(), testFeedUrl)

	if summary.Skipped != 1 || summary.Created != 0 || summary.Failed != 0 {
		t.Errorf("got summary %+v, want 1 skipped", summary)
	}
	photo, _ := store.Get(context.Background(), "already exists")
	if photo.Album != "album3" {
		t.Errorf("got album %q, want untouched %q", photo.Album, "album3")
	}
	if photo.Popularity != 42 {
		t.Errorf("got popularity %v, want untouched 42", photo.Popularity)
	}
	if photo.Title != "original title" {
		t.Errorf("got title %q, want untouched %q", photo.Title, "original title")
	}
	if store.creates != 0 {
		t.Errorf("got %v create calls, want 0", store.creates)
	}
}

func TestImportFeedIsolatesMalformedEntries(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 6, 15, 13, 37, 0, 0, time.UTC)
	malformed := &gofeed.Item{GUID: "bad", Title: "no published date", Link: "https://example.org/photos/bad"}
	wellformed := feedEntry("good", "a good photo", published)

	var tests = []struct {
		name  string
		items []*gofeed.Item
	}{
		{"malformed first", []*gofeed.Item{malformed, wellformed}},
		{"malformed last", []*gofeed.Item{wellformed, malformed}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			client := &fakeFeedClient{feeds: map[string]*gofeed.Feed{
				testFeedUrl: {Items: tt.items},
			}}
			service := newTestService(store, client)

			summary := service.ImportFeed(context.Background(), testFeedUrl)

			if summary.Created != 1 || summary.Failed != 1 {
				t.Errorf("got summary %+v, want 1 created 1 failed", summary)
			}
			photo, _ := store.Get(context.Background(), "good")
			if photo == nil {
				t.Errorf("well-formed entry was not stored")
			}
			bad, _ := store.Get(context.Background(), "bad")
			if bad != nil {
				t.Errorf("malformed entry was stored")
			}
		})
	}
}

func TestImportFeedFetchFailure(t *testing.T) {
	// not parallel: captures the global log output

	store := newFakeStore()
	client := &fakeFeedClient{err: errors.New("connection refused")}
	service := newTestService(store, client)

	var logBuf bytes.Buffer
	log.SetOutput(&logBuf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	summary := service.ImportFeed(context.Background(), testFeedUrl)

	if summary.Created != 0 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("got summary %+v, want all zero", summary)
	}
	if store.creates != 0 {
		t.Errorf("got %v create calls after fetch failure, want 0", store.creates)
	}
	logged := logBuf.String()
	if got := strings.Count(logged, "\n"); got != 1 {
		t.Errorf("got %v log lines for a failed fetch, want exactly 1:\n%v", got, logged)
	}
	if !strings.Contains(logged, "failed to fetch feed") {
		t.Errorf("expected a fetch warning, got %q", logged)
	}
	log.SetOutput(os.Stderr)

	// a later run is independent and works normally
	published := time.Date(2024, 6, 15, 13, 37, 0, 0, time.UTC)
	client.err = nil
	client.feeds = map[string]*gofeed.Feed{
		testFeedUrl: {Items: []*gofeed.Item{feedEntry("guid1", "first photo", published)}},
	}
	summary = service.ImportFeed(context.Background(), testFeedUrl)
	if summary.Created != 1 {
		t.Errorf("got summary %+v after recovery, want 1 created", summary)
	}
}

func TestImportFeedTreatsCreateRaceAsSkip(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 6, 15, 13, 37, 0, 0, time.UTC)
	store := newFakeStore()
	store.createErr = ErrAlreadyExists
	client := &fakeFeedClient{feeds: map[string]*gofeed.Feed{
		testFeedUrl: {Items: []*gofeed.Item{
			feedEntry("guid1", "first photo", published),
			feedEntry("guid2", "second photo", published),
		}},
	}}
	service := newTestService(store, client)

	summary := service.ImportFeed(context.Background(), testFeedUrl)

	if summary.Skipped != 2 || summary.Created != 0 || summary.Failed != 0 {
		t.Errorf("got summary %+v, want 2 skipped", summary)
	}
}

func TestImportFeedContinuesAfterCreateError(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 6, 15, 13, 37, 0, 0, time.UTC)
	store := newFakeStore()
	store.createErr = errors.New("disk full")
	client := &fakeFeedClient{feeds: map[string]*gofeed.Feed{
		testFeedUrl: {Items: []*gofeed.Item{
			feedEntry("guid1", "first photo", published),
			feedEntry("guid2", "second photo", published),
		}},
	}}
	service := newTestService(store, client)

	summary := service.ImportFeed(context.Background(), testFeedUrl)

	if summary.Failed != 2 {
		t.Errorf("got summary %+v, want 2 failed", summary)
	}
	if store.creates != 2 {
		t.Errorf("got %v create calls, want 2 (no early abort)", store.creates)
	}
}
