package store

import (
	"github.com/jmoiron/sqlx"
)

// DBTX is the query surface shared by *sqlx.DB and *sqlx.Tx, allowing stores
// to work with either a pooled connection or a transaction.
type DBTX interface {
	sqlx.ExtContext
}
