package db

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type ConnectionStringer interface {
	ConnectionString() string
}

var connections map[string]*sqlx.DB = make(map[string]*sqlx.DB)
var lock sync.RWMutex

// DriverName picks the sql driver based on the connection string.
// Anything that does not look like a postgres URL is treated as a
// sqlite file path.
func DriverName(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		return "postgres"
	}
	return "sqlite3"
}

func Open(connStringer ConnectionStringer) (*sqlx.DB, error) {
	lock.Lock()
	defer lock.Unlock()
	connStr := connStringer.ConnectionString()
	existingDb, ok := connections[connStr]
	if ok {
		return existingDb, nil
	}
	db, err := sqlx.Open(DriverName(connStr), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	connections[connStr] = db
	return db, nil
}
