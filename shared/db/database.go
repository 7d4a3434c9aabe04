package db

import (
	"database/sql"
)

// Database is a connection the journal can be opened on.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
