package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/observability"
)

// querier is the subset of a pgx connection the session needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PGStore struct {
	pool           *pgxpool.Pool
	offeringsQuery string
	table          string
}

// NewPG builds a lazily connecting pool; connection failures surface on
// Acquire.
func NewPG(ctx context.Context, cfg config.StorageCfg) (*PGStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(min(cfg.MaxConns, 1<<15))
	}
	if cfg.ConnectTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &PGStore{
		pool:           pool,
		offeringsQuery: cfg.OfferingsQuery,
		table:          QuoteTable(cfg.ObservationsTable),
	}, nil
}

// QuoteTable sanitizes a possibly schema-qualified table name.
func QuoteTable(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "observations"
	}
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func (s *PGStore) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		observability.IncStorageAcquireError()
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &pgSession{
		q:              conn,
		release:        conn.Release,
		offeringsQuery: s.offeringsQuery,
		table:          s.table,
	}, nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping storage: %w", err)
	}
	return nil
}

func (s *PGStore) Close() { s.pool.Close() }

type pgSession struct {
	q              querier
	release        func()
	offeringsQuery string
	table          string
}

func (s *pgSession) Release() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

func (s *pgSession) Offerings(ctx context.Context) ([]model.Offering, error) {
	start := time.Now()
	out, err := s.offerings(ctx)
	observability.ObserveStorageQuery("offerings", err, time.Since(start).Seconds())
	return out, err
}

func (s *pgSession) offerings(ctx context.Context) ([]model.Offering, error) {
	rows, err := s.q.Query(ctx, s.offeringsQuery)
	if err != nil {
		return nil, fmt.Errorf("query offerings: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []model.Offering
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read offering row: %w", err)
		}
		cols := make(map[string]any, len(fields))
		for i, f := range fields {
			if i < len(vals) {
				cols[strings.ToLower(f.Name)] = vals[i]
			}
		}
		out = append(out, OfferingFromColumns(cols))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offerings: %w", err)
	}
	return out, nil
}

func (s *pgSession) Offering(ctx context.Context, id string) (model.Offering, error) {
	all, err := s.Offerings(ctx)
	if err != nil {
		return model.Offering{}, err
	}
	for _, o := range all {
		if o.ID == id {
			return o, nil
		}
	}
	return model.Offering{}, fmt.Errorf("%w: %q", ErrOfferingNotFound, id)
}

func (s *pgSession) ObservedProperties(ctx context.Context) ([]string, error) {
	start := time.Now()
	sql := "SELECT DISTINCT property FROM " + s.table + " ORDER BY property"
	rows, err := s.q.Query(ctx, sql)
	if err != nil {
		observability.ObserveStorageQuery("observed_properties", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("query observed properties: %w", err)
	}
	props, err := pgx.CollectRows(rows, pgx.RowTo[string])
	observability.ObserveStorageQuery("observed_properties", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("collect observed properties: %w", err)
	}
	return props, nil
}

func (s *pgSession) Observations(ctx context.Context, q Query) ([]model.Observation, error) {
	start := time.Now()
	rows, err := s.q.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		observability.ObserveStorageQuery("observations", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("query observations: %w", err)
	}
	obs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Observation, error) {
		var o model.Observation
		if err := row.Scan(&o.Time, &o.Value, &o.Property); err != nil {
			return model.Observation{}, err
		}
		o.Time = o.Time.UTC()
		return o, nil
	})
	observability.ObserveStorageQuery("observations", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("collect observations: %w", err)
	}
	if obs == nil {
		obs = []model.Observation{}
	}
	return obs, nil
}

// IsNotFound reports whether err means the offering does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOfferingNotFound)
}
