package photos

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// ErrAlreadyExists is returned by PhotoStore.Create when a record with the
// same id is already present. The store is the authority on uniqueness; a
// concurrent duplicate create surfaces as this error and is treated as a
// benign skip by the importer.
var ErrAlreadyExists = errors.New("photo already exists")

type PhotoDto struct {
	Id           string     `db:"id" json:"id"`
	SourceUrl    string     `db:"source_url" json:"sourceUrl"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	TakenAt      time.Time  `db:"taken_at" json:"takenAt"`
	Popularity   int        `db:"popularity" json:"popularity"`
	PhotoUrl     string     `db:"photo_url" json:"photoUrl"`
	ThumbnailUrl string     `db:"thumbnail_url" json:"thumbnailUrl"`
	Tags         StringList `db:"tags" json:"tags"`
	Album        string     `db:"album" json:"album"`
	InsertedAt   *time.Time `db:"inserted_at" json:"insertedAt"`
}

// StringList is stored as a json array in a TEXT column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (s *StringList) Scan(value any) error {
	if value == nil {
		*s = StringList{}
		return nil
	}
	switch v := value.(type) {
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

type FeedSource struct {
	Name        string `json:"name"`
	Url         string `json:"url"`
	Description string `json:"description"`
	Disabled    bool   `json:"disabled"`
}

// PhotoStore is a keyed, create-only store of photo records. Create never
// updates an existing record.
type PhotoStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*PhotoDto, error)
	Create(ctx context.Context, photo PhotoDto) error
}

// SourceListing enumerates the registered feed sources. Sources are owned
// outside the importer; it only consumes the listing.
type SourceListing interface {
	GetSources(ctx context.Context) ([]FeedSource, error)
}

// FeedClient fetches and parses one remote feed. Fetch options (timeouts,
// user agent) are fixed per client, not per call.
type FeedClient interface {
	Fetch(ctx context.Context, feedUrl string) (*gofeed.Feed, error)
}
