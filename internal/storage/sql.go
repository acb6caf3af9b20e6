package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var upsertObject = map[string]string{
	DialectPostgres: `
		INSERT INTO objects (name, content_type, data)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			data = EXCLUDED.data
	`,
	DialectMySQL: `
		INSERT INTO objects (name, content_type, data)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			content_type = VALUES(content_type),
			data = VALUES(data)
	`,
	DialectSQLite: `
		INSERT INTO objects (name, content_type, data)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data
	`,
}

// SQLStore keeps objects in the objects table of a Pool.
type SQLStore struct {
	pool *Pool
	base string
}

// NewSQLStore wraps a migrated pool.
func NewSQLStore(pool *Pool, base string) *SQLStore {
	return &SQLStore{pool: pool, base: base}
}

func (s *SQLStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if _, err := s.pool.Exec(ctx, upsertObject[s.pool.Dialect()], name, contentType, data); err != nil {
		return "", fmt.Errorf("save object %s: %w", name, err)
	}
	return publicURL(s.base, name), nil
}

func (s *SQLStore) Get(ctx context.Context, name string) (*Object, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var (
		obj     Object
		created any
	)
	err := s.pool.QueryRow(ctx,
		"SELECT name, content_type, data, created_at FROM objects WHERE name = ?", name,
	).Scan(&obj.Name, &obj.ContentType, &obj.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}
	obj.CreatedAt = scanTime(created)
	return &obj, nil
}

func (s *SQLStore) Close() error {
	return s.pool.Close()
}

// scanTime normalises timestamps; MySQL without parseTime returns raw bytes.
func scanTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return parseTimestamp(string(t))
	case string:
		return parseTimestamp(t)
	default:
		return time.Time{}
	}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
