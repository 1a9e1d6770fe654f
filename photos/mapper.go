package photos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// MappingError is a single-entry failure. It carries the entry context so
// the import loop can log it and move on; no partial record is produced.
type MappingError struct {
	FeedUrl    string
	EntryId    string
	EntryTitle string
	Err        error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("failed to map entry %q (%q) from feed %v: %v", e.EntryId, e.EntryTitle, e.FeedUrl, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// EntryMapper converts raw feed entries to photo records.
type EntryMapper struct {
	sanitizer *bluemonday.Policy
}

func NewEntryMapper() *EntryMapper {
	return &EntryMapper{
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func entryId(item *gofeed.Item) string {
	return item.GUID
}

// Map builds a PhotoDto from a feed entry. Popularity starts at 0 and the
// published timestamp is reduced to a calendar date.
func (m *EntryMapper) Map(feedUrl string, item *gofeed.Item) (PhotoDto, error) {
	mappingErr := func(err error) (PhotoDto, error) {
		return PhotoDto{}, &MappingError{FeedUrl: feedUrl, EntryId: entryId(item), EntryTitle: item.Title, Err: err}
	}
	id := entryId(item)
	if id == "" {
		return mappingErr(errors.New("entry has no guid"))
	}
	if item.PublishedParsed == nil {
		return mappingErr(fmt.Errorf("entry has no parseable published timestamp: %q", item.Published))
	}
	if item.Link == "" {
		return mappingErr(errors.New("entry has no link"))
	}
	published := item.PublishedParsed.UTC()
	takenAt := time.Date(published.Year(), published.Month(), published.Day(), 0, 0, 0, 0, time.UTC)
	return PhotoDto{
		Id:           id,
		SourceUrl:    feedUrl,
		Title:        item.Title,
		Description:  strings.TrimSpace(m.sanitizer.Sanitize(item.Description)),
		TakenAt:      takenAt,
		Popularity:   0,
		PhotoUrl:     item.Link,
		ThumbnailUrl: thumbnailUrl(item),
		Tags:         StringList{},
	}, nil
}

func thumbnailUrl(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		if thumbnails, ok := media["thumbnail"]; ok && len(thumbnails) > 0 {
			if url, ok := thumbnails[0].Attrs["url"]; ok {
				return url
			}
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	for _, enclosure := range item.Enclosures {
		if strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}
	return ""
}
