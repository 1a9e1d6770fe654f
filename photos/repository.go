package photos

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mbroe/fotostrom/db"
	"github.com/mbroe/fotostrom/pkg"
)

// Queries are written with ? bindvars and rebound through the connection,
// so the same text works on both sqlite and postgres.
const (
	queryPhotoExists  = "SELECT count(*) FROM photos WHERE id = ?"
	queryPhotoById    = "SELECT * FROM photos WHERE id = ?"
	queryRecentPhotos = "SELECT * FROM photos ORDER BY taken_at DESC, id LIMIT ? OFFSET ?"
)

func recentIdsQuery(withOffset bool) string {
	offsetWhere := ""
	if withOffset {
		offsetWhere = " AND inserted_at < ? "
	}
	return "SELECT id, inserted_at FROM photos WHERE source_url = ? " + offsetWhere + " ORDER BY inserted_at DESC LIMIT ?"
}

type PhotoRepository struct {
	context *pkg.AppContext
}

func NewPhotoRepository(context *pkg.AppContext) *PhotoRepository {
	return &PhotoRepository{
		context: context,
	}
}

//go:embed data
var dataFs embed.FS

func (r *PhotoRepository) GetSources(ctx context.Context) ([]FeedSource, error) {
	jsonBytes, err := dataFs.ReadFile("data/sources.json")
	if err != nil {
		return nil, fmt.Errorf("could not load sources.json: %w", err)
	}
	var sources []FeedSource
	err = json.Unmarshal(jsonBytes, &sources)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *PhotoRepository) Exists(ctx context.Context, id string) (bool, error) {
	db, err := db.Open(r.context.Config)
	if err != nil {
		return false, err
	}
	var count int
	err = db.GetContext(ctx, &count, db.Rebind(queryPhotoExists), id)
	if err != nil {
		return false, fmt.Errorf("failed to check photo %v: %w", id, err)
	}
	return count > 0, nil
}

func (r *PhotoRepository) Get(ctx context.Context, id string) (*PhotoDto, error) {
	db, err := db.Open(r.context.Config)
	if err != nil {
		return nil, err
	}
	var photo PhotoDto
	err = db.GetContext(ctx, &photo, db.Rebind(queryPhotoById), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get photo %v: %w", id, err)
	}
	return &photo, nil
}

func (r *PhotoRepository) Create(ctx context.Context, photo PhotoDto) error {
	dbConn, err := db.Open(r.context.Config)
	if err != nil {
		return err
	}
	if photo.InsertedAt == nil {
		now := time.Now()
		photo.InsertedAt = &now
	}
	result, err := dbConn.NamedExecContext(ctx, "INSERT INTO photos (id, source_url, title, description, taken_at, popularity, photo_url, thumbnail_url, tags, album, inserted_at) "+
		"VALUES (:id, :source_url, :title, :description, :taken_at, :popularity, :photo_url, :thumbnail_url, :tags, :album, :inserted_at) ON CONFLICT (id) DO NOTHING", photo)
	if err != nil {
		return fmt.Errorf("failed to insert photo %v: %w", photo.Id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for photo %v: %w", photo.Id, err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *PhotoRepository) GetRecent(ctx context.Context, limit int, offset int) ([]PhotoDto, error) {
	db, err := db.Open(r.context.Config)
	if err != nil {
		return nil, err
	}
	var photos []PhotoDto
	err = db.SelectContext(ctx, &photos, db.Rebind(queryRecentPhotos), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent photos: %w", err)
	}
	return photos, nil
}

func (r *PhotoRepository) GetByIds(ctx context.Context, ids []string) ([]PhotoDto, error) {
	var photos []PhotoDto
	if len(ids) == 0 {
		return photos, nil
	}
	dbConn, err := db.Open(r.context.Config)
	if err != nil {
		return nil, err
	}
	query, args, err := sqlx.In("SELECT * FROM photos WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build in-query: %w", err)
	}
	query = dbConn.Rebind(query)
	err = dbConn.SelectContext(ctx, &photos, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos by ids: %w", err)
	}
	return photos, nil
}

// GetRecentIds pages through photo ids for one source, newest insert first.
// The returned timestamp is the inserted_at of the last row, for use as the
// offset of the next page.
func (r *PhotoRepository) GetRecentIds(ctx context.Context, sourceUrl string, limit int, insertedAtOffset *time.Time) ([]string, *time.Time, error) {
	db, err := db.Open(r.context.Config)
	if err != nil {
		return nil, nil, err
	}
	args := []interface{}{sourceUrl, limit}
	if insertedAtOffset != nil {
		args = []interface{}{sourceUrl, insertedAtOffset, limit}
	}
	var rows []struct {
		Id         string     `db:"id"`
		InsertedAt *time.Time `db:"inserted_at"`
	}
	err = db.SelectContext(ctx, &rows, db.Rebind(recentIdsQuery(insertedAtOffset != nil)), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get photo ids for source %v: %w", sourceUrl, err)
	}
	ids := make([]string, len(rows))
	var lastInsertedAt *time.Time
	for i, row := range rows {
		ids[i] = row.Id
		if i == len(rows)-1 {
			lastInsertedAt = row.InsertedAt
		}
	}
	return ids, lastInsertedAt, nil
}

func (r *PhotoRepository) GetPhotoCounts(ctx context.Context) (map[string]int, error) {
	db, err := db.Open(r.context.Config)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		SourceUrl string `db:"source_url"`
		Count     int    `db:"count"`
	}
	err = db.SelectContext(ctx, &rows, "SELECT source_url, count(*) AS count FROM photos GROUP BY source_url")
	if err != nil {
		return nil, fmt.Errorf("failed to get photo counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SourceUrl] = row.Count
	}
	return counts, nil
}
