// Package storage is the query contract between the SOS handlers and the
// sensor time-series store.
package storage

import (
	"context"
	"errors"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
)

var ErrOfferingNotFound = errors.New("offering not found")

// Query is a parameterized statement; every client supplied value lives
// in Args, never in SQL.
type Query struct {
	SQL  string
	Args []any
}

// Session is one acquired storage connection. Callers must Release it.
type Session interface {
	Offerings(ctx context.Context) ([]model.Offering, error)
	Offering(ctx context.Context, id string) (model.Offering, error)
	ObservedProperties(ctx context.Context) ([]string, error)
	Observations(ctx context.Context, q Query) ([]model.Observation, error)
	Release()
}

type Store interface {
	Acquire(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close()
}
