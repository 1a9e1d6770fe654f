package photos

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

type PhotoSearch struct {
	indexPath string
	index     bleve.Index
}

func NewPhotoSearch(indexPath string) *PhotoSearch {
	return &PhotoSearch{
		indexPath: indexPath,
	}
}

// searchDoc is the indexed projection of a photo record.
type searchDoc struct {
	SourceUrl    string    `json:"sourceUrl"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TakenAt      time.Time `json:"takenAt"`
	PhotoUrl     string    `json:"photoUrl"`
	ThumbnailUrl string    `json:"thumbnailUrl"`
}

// OpenAndCreateIndexIfNotExists opens the index, creating it first if no
// index exists at the configured path. Returns true if the index was
// created.
func (s *PhotoSearch) OpenAndCreateIndexIfNotExists() (bool, error) {
	created := false
	if _, err := os.Stat(s.indexPath); os.IsNotExist(err) {
		indexMapping := bleve.NewIndexMapping()
		index, err := bleve.New(s.indexPath, indexMapping)
		if err != nil {
			return false, err
		}
		s.index = index
		return true, nil
	}
	index, err := bleve.Open(s.indexPath)
	if err != nil {
		return created, err
	}
	s.index = index
	return created, nil
}

func (s *PhotoSearch) CloseIndex() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

func (s *PhotoSearch) Index(photos []PhotoDto) error {
	if len(photos) == 0 {
		return nil
	}
	batchSize := 1000
	batchCount := 0
	count := 0
	startTime := time.Now()
	batch := s.index.NewBatch()
	for _, photo := range photos {
		doc := searchDoc{
			SourceUrl:    photo.SourceUrl,
			Title:        photo.Title,
			Description:  photo.Description,
			TakenAt:      photo.TakenAt,
			PhotoUrl:     photo.PhotoUrl,
			ThumbnailUrl: photo.ThumbnailUrl,
		}
		if err := batch.Index(photo.Id, doc); err != nil {
			return err
		}
		batchCount++
		count++
		if batchCount >= batchSize {
			if err := s.index.Batch(batch); err != nil {
				return err
			}
			batch = s.index.NewBatch()
			batchCount = 0
		}
	}
	if batchCount > 0 {
		if err := s.index.Batch(batch); err != nil {
			return err
		}
	}
	log.Printf("Indexed %d photos in %v", count, time.Since(startTime))
	return nil
}

// HasItems returns the subset of ids present in the index, as a set.
func (s *PhotoSearch) HasItems(ctx context.Context, ids []string) (map[string]any, error) {
	result := make(map[string]any, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	docIdQuery := query.NewDocIDQuery(ids)
	searchReq := bleve.NewSearchRequestOptions(docIdQuery, len(ids), 0, false)
	searchResult, err := s.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, err
	}
	for _, hit := range searchResult.Hits {
		result[hit.ID] = struct{}{}
	}
	return result, nil
}

func (s *PhotoSearch) Search(ctx context.Context, searchQuery string, size int, from int, orderBy string, searchDescription bool, fields []string) (*bleve.SearchResult, error) {
	titleQuery := bleve.NewMatchQuery(searchQuery)
	titleQuery.SetField("title")
	var bleveQuery query.Query = titleQuery
	if searchDescription {
		descriptionQuery := bleve.NewMatchQuery(searchQuery)
		descriptionQuery.SetField("description")
		disjunctionQuery := query.NewDisjunctionQuery([]query.Query{titleQuery, descriptionQuery})
		disjunctionQuery.Min = 1 // match at least one, either title or description
		bleveQuery = disjunctionQuery
	}
	searchReq := bleve.NewSearchRequestOptions(bleveQuery, size, from, false)
	if orderBy != "" {
		searchReq.SortBy([]string{orderBy})
	}
	if len(fields) > 0 {
		searchReq.Fields = fields
	}
	return s.index.SearchInContext(ctx, searchReq)
}
