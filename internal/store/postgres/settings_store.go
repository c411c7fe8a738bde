package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	q := querier(ctx, s.pool)
	row := q.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key)

	var value string
	err := row.Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: get setting: %w", err)
	}
	return value, true, nil
}
