package photos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mbroe/fotostrom/metrics"
	"github.com/mbroe/fotostrom/pkg"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
)

// ImportSummary counts the per-entry outcomes of one import run.
type ImportSummary struct {
	FeedUrl string `json:"feedUrl"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

type entryOutcome int

const (
	entryCreated entryOutcome = iota
	entrySkipped
	entryFailed
)

type PhotoService struct {
	context    *pkg.AppContext
	store      PhotoStore
	repository *PhotoRepository
	sources    SourceListing
	feedClient FeedClient
	mapper     *EntryMapper
	search     *PhotoSearch
}

// NewPhotoService wires the import pipeline. The import path only writes
// through store; repository and search serve the read/reindex side and may
// be nil when those features are not needed.
func NewPhotoService(context *pkg.AppContext, store PhotoStore, repository *PhotoRepository, sources SourceListing, feedClient FeedClient, search *PhotoSearch) *PhotoService {
	return &PhotoService{
		context:    context,
		store:      store,
		repository: repository,
		sources:    sources,
		feedClient: feedClient,
		mapper:     NewEntryMapper(),
		search:     search,
	}
}

// ImportFeed runs one import for one feed url. All failures are absorbed:
// a fetch failure ends the run with nothing processed, an entry failure is
// logged and the next entry is processed. The summary reports what
// happened; nothing is escalated to the caller.
func (s *PhotoService) ImportFeed(ctx context.Context, feedUrl string) ImportSummary {
	summary := ImportSummary{FeedUrl: feedUrl}
	start := time.Now()
	feed, err := s.feedClient.Fetch(ctx, feedUrl)
	if err != nil {
		log.Printf("failed to fetch feed %v: %v", feedUrl, err)
		metrics.FeedFetchFailureInc(feedUrl)
		return summary
	}
	created := make([]PhotoDto, 0)
	for _, item := range feed.Items {
		outcome, photo := s.importEntry(ctx, feedUrl, item)
		switch outcome {
		case entryCreated:
			summary.Created++
			metrics.ImportCreatedInc(feedUrl)
			created = append(created, photo)
		case entrySkipped:
			summary.Skipped++
			metrics.ImportSkippedInc(feedUrl)
		case entryFailed:
			summary.Failed++
			metrics.ImportFailedInc(feedUrl)
		}
	}
	if s.search != nil && len(created) > 0 {
		if err := s.search.Index(created); err != nil {
			log.Printf("failed to index photos from %v: %v", feedUrl, err)
		}
	}
	log.Printf("ImportFeed: %v created=%v skipped=%v failed=%v took %v", feedUrl, summary.Created, summary.Skipped, summary.Failed, time.Since(start))
	return summary
}

// importEntry processes a single entry independently of the rest of the
// batch. A previously seen id is skipped without reading or comparing the
// stored record, so fields managed elsewhere (popularity, album, tags)
// stay untouched.
func (s *PhotoService) importEntry(ctx context.Context, feedUrl string, item *gofeed.Item) (entryOutcome, PhotoDto) {
	id := entryId(item)
	if id != "" {
		exists, err := s.store.Exists(ctx, id)
		if err != nil {
			log.Printf("failed to check entry %q from feed %v: %v", id, feedUrl, err)
			return entryFailed, PhotoDto{}
		}
		if exists {
			return entrySkipped, PhotoDto{}
		}
	}
	photo, err := s.mapper.Map(feedUrl, item)
	if err != nil {
		log.Print(err)
		return entryFailed, PhotoDto{}
	}
	err = s.store.Create(ctx, photo)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// lost a create race, the stored record wins
			log.Printf("entry %q from feed %v already created concurrently", id, feedUrl)
			return entrySkipped, PhotoDto{}
		}
		log.Printf("failed to store entry %q from feed %v: %v", id, feedUrl, err)
		return entryFailed, PhotoDto{}
	}
	return entryCreated, photo
}

func (s *PhotoService) GetSources(ctx context.Context) ([]FeedSource, error) {
	return s.sources.GetSources(ctx)
}

func (s *PhotoService) RefreshMetrics(ctx context.Context) error {
	sources, err := s.sources.GetSources(ctx)
	if err != nil {
		return err
	}
	counts, err := s.repository.GetPhotoCounts(ctx)
	if err != nil {
		return err
	}
	for _, source := range sources {
		count, ok := counts[source.Url]
		if ok {
			metrics.PhotoCountSet(source.Name, count)
		}
	}
	return nil
}

type PhotoSearchResult struct {
	Id           string    `json:"id"`
	SourceUrl    string    `json:"sourceUrl"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TakenAt      time.Time `json:"takenAt"`
	PhotoUrl     string    `json:"photoUrl"`
	ThumbnailUrl string    `json:"thumbnailUrl"`
}

func (s *PhotoService) SearchPhotos(ctx context.Context, query string, searchDescription bool, offset int, limit int, orderBy string) ([]PhotoSearchResult, error) {
	items := []PhotoSearchResult{}
	if len(query) > 50 || len(query) <= 2 {
		return items, nil
	}
	searchResult, err := s.search.Search(ctx, query, limit, offset, orderBy, searchDescription, []string{"title", "description", "takenAt", "sourceUrl", "photoUrl", "thumbnailUrl"})
	if err != nil {
		return items, fmt.Errorf("failed to search: %w", err)
	}
	for _, doc := range searchResult.Hits {
		item := PhotoSearchResult{
			Id: doc.ID,
		}
		for k, field := range doc.Fields {
			fieldStr, ok := field.(string)
			if !ok {
				continue
			}
			switch k {
			case "title":
				item.Title = fieldStr
			case "description":
				item.Description = fieldStr
			case "sourceUrl":
				item.SourceUrl = fieldStr
			case "photoUrl":
				item.PhotoUrl = fieldStr
			case "thumbnailUrl":
				item.ThumbnailUrl = fieldStr
			case "takenAt":
				takenAt, err := time.Parse(time.RFC3339, fieldStr)
				if err != nil {
					return items, fmt.Errorf("error parsing takenAt %q to time: %w", fieldStr, err)
				}
				item.TakenAt = takenAt
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *PhotoService) GetPhoto(ctx context.Context, id string) (*PhotoDto, error) {
	return s.store.Get(ctx, id)
}

func (s *PhotoService) GetRecentPhotos(ctx context.Context, limit int, offset int) ([]PhotoDto, error) {
	return s.repository.GetRecent(ctx, limit, offset)
}

func (s *PhotoService) AddMissingPhotosToSearchIndexAndLogError(ctx context.Context) {
	err := s.addMissingPhotosToSearchIndex(ctx)
	if err != nil {
		log.Printf("failed to add missing photos to search index: %v", err)
	}
}

// addMissingPhotosToSearchIndex walks the store per source and indexes any
// record the search index does not know about. Used after the index is
// created from scratch, and as a periodic reconcile.
func (s *PhotoService) addMissingPhotosToSearchIndex(ctx context.Context) error {
	if s.repository == nil || s.search == nil {
		return nil
	}
	sources, err := s.sources.GetSources(ctx)
	if err != nil {
		return fmt.Errorf("error getting sources: %w", err)
	}
	for _, source := range sources {
		err = s.addMissingPhotosToSearchIndexForSource(ctx, source)
		if err != nil {
			return fmt.Errorf("error adding missing photos to search index for source %v: %w", source.Url, err)
		}
	}
	return nil
}

func (s *PhotoService) addMissingPhotosToSearchIndexForSource(ctx context.Context, source FeedSource) error {
	chunkSize := 10000
	var insertedAtOffset *time.Time
	getMore := true
	for getMore {
		photoIds, lastInsertedAt, err := s.repository.GetRecentIds(ctx, source.Url, chunkSize, insertedAtOffset)
		if err != nil {
			return fmt.Errorf("error getting recent photo ids: %w", err)
		}
		if len(photoIds) < chunkSize {
			getMore = false
		} else {
			insertedAtOffset = lastInsertedAt
		}
		idsInIndex, err := s.search.HasItems(ctx, photoIds)
		if err != nil {
			return fmt.Errorf("error checking search index: %w", err)
		}
		idsToIndex := lo.Filter(photoIds, func(id string, _ int) bool {
			_, ok := idsInIndex[id]
			return !ok
		})
		if len(idsToIndex) == 0 {
			continue
		}
		log.Printf("Out of %v db photos, %v were not in search index", len(photoIds), len(idsToIndex))
		for _, idChunk := range lo.Chunk(idsToIndex, 1000) {
			photos, err := s.repository.GetByIds(ctx, idChunk)
			if err != nil {
				return fmt.Errorf("error getting photos by ids: %w", err)
			}
			if err := s.search.Index(photos); err != nil {
				return fmt.Errorf("error indexing photos: %w", err)
			}
		}
	}
	return nil
}
