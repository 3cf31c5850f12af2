package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Trip struct {
	ID             string
	Distance       sql.NullFloat64
	Purpose        string
	Classification string
	StartMs        sql.NullInt64
	EndMs          sql.NullInt64
	Status         string
	Notes          string
	CreatedAt      int64
	UpdatedAt      int64
}

type Expense struct {
	ID             string
	Amount         sql.NullFloat64
	Category       string
	Classification string
	Description    string
	DateMs         sql.NullInt64
	CreatedAt      int64
	UpdatedAt      int64
}

type RateOverride struct {
	RateKey   string
	Rate      float64
	UpdatedAt int64
}

type ExportJob struct {
	ID        string
	RangeFrom sql.NullInt64
	RangeTo   sql.NullInt64
	RateKey   string
	Scope     string
	Status    string
	Attempts  int64
	Target    string
	LastError string
	CreatedAt int64
	UpdatedAt int64
}
