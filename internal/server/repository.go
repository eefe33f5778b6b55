/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package server hosts the annotation and auth HTTP service that the
// editor's sync client talks to. Sets are stored per user in a SQL
// database; SQLite by default, PostgreSQL when the DSN says so.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"markbox/internal/domain"
)

var (
	// ErrNotFound marks a missing set or user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate marks a username that is already taken.
	ErrDuplicate = errors.New("already exists")
)

// Repository is the persistence surface the handlers and the retention
// job run against.
type Repository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (domain.User, error)
	UserByUsername(ctx context.Context, username string) (domain.User, string, error)

	ListSets(ctx context.Context, userID string) ([]domain.AnnotationSet, error)
	CreateSet(ctx context.Context, userID string, rects []domain.Rectangle) (domain.AnnotationSet, error)
	UpdateSet(ctx context.Context, userID, id string, rects []domain.Rectangle) (domain.AnnotationSet, error)
	DeleteSet(ctx context.Context, userID, id string) error

	UserIDs(ctx context.Context) ([]string, error)
	TrimSets(ctx context.Context, userID string, keep int) (int64, error)

	Close() error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotation_sets (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    rectangles TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sets_user ON annotation_sets (user_id, created_at);
`

// SQLRepository runs the same statements against SQLite or PostgreSQL;
// only the placeholder style differs between the two drivers.
type SQLRepository struct {
	db *sql.DB
	pg bool
}

// Open connects to the database named by dsn and applies the schema.
// A postgres:// or postgresql:// DSN selects the pgx driver, anything
// else is treated as a SQLite database path.
func Open(ctx context.Context, dsn string) (*SQLRepository, error) {
	pg := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	driver := "sqlite"
	if pg {
		driver = "pgx"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	r := &SQLRepository{db: db, pg: pg}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return r, nil
}

func (r *SQLRepository) Close() error { return r.db.Close() }

// bind rewrites ? placeholders to $n for the postgres driver.
func (r *SQLRepository) bind(q string) string {
	if !r.pg {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// Fixed-width stamp so lexical ORDER BY matches time order.
const stampLayout = "2006-01-02T15:04:05.000000000Z"

func now() string { return time.Now().UTC().Format(stampLayout) }

func (r *SQLRepository) CreateUser(ctx context.Context, username, passwordHash string) (domain.User, error) {
	u := domain.User{ID: uuid.NewString(), Username: username}
	_, err := r.db.ExecContext(ctx, r.bind(`
        INSERT INTO users (id, username, password_hash, created_at)
        VALUES (?, ?, ?, ?)
    `), u.ID, username, passwordHash, now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate key") {
			return domain.User{}, ErrDuplicate
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *SQLRepository) UserByUsername(ctx context.Context, username string) (domain.User, string, error) {
	row := r.db.QueryRowContext(ctx, r.bind(`
        SELECT id, username, password_hash FROM users WHERE username = ?
    `), username)
	var u domain.User
	var hash string
	if err := row.Scan(&u.ID, &u.Username, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, "", ErrNotFound
		}
		return domain.User{}, "", err
	}
	return u, hash, nil
}

func (r *SQLRepository) ListSets(ctx context.Context, userID string) ([]domain.AnnotationSet, error) {
	rows, err := r.db.QueryContext(ctx, r.bind(`
        SELECT id, rectangles FROM annotation_sets
        WHERE user_id = ? ORDER BY created_at ASC
    `), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := []domain.AnnotationSet{}
	for rows.Next() {
		var set domain.AnnotationSet
		var doc string
		if err := rows.Scan(&set.ID, &doc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(doc), &set.Rectangles); err != nil {
			return nil, fmt.Errorf("decode set %s: %w", set.ID, err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (r *SQLRepository) CreateSet(ctx context.Context, userID string, rects []domain.Rectangle) (domain.AnnotationSet, error) {
	if rects == nil {
		rects = []domain.Rectangle{}
	}
	doc, err := json.Marshal(rects)
	if err != nil {
		return domain.AnnotationSet{}, err
	}
	set := domain.AnnotationSet{ID: uuid.NewString(), Rectangles: rects}
	ts := now()
	_, err = r.db.ExecContext(ctx, r.bind(`
        INSERT INTO annotation_sets (id, user_id, rectangles, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
    `), set.ID, userID, string(doc), ts, ts)
	if err != nil {
		return domain.AnnotationSet{}, err
	}
	return set, nil
}

func (r *SQLRepository) UpdateSet(ctx context.Context, userID, id string, rects []domain.Rectangle) (domain.AnnotationSet, error) {
	if rects == nil {
		rects = []domain.Rectangle{}
	}
	doc, err := json.Marshal(rects)
	if err != nil {
		return domain.AnnotationSet{}, err
	}
	res, err := r.db.ExecContext(ctx, r.bind(`
        UPDATE annotation_sets SET rectangles = ?, updated_at = ?
        WHERE id = ? AND user_id = ?
    `), string(doc), now(), id, userID)
	if err != nil {
		return domain.AnnotationSet{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.AnnotationSet{}, err
	}
	if n == 0 {
		return domain.AnnotationSet{}, ErrNotFound
	}
	return domain.AnnotationSet{ID: id, Rectangles: rects}, nil
}

func (r *SQLRepository) DeleteSet(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, r.bind(`
        DELETE FROM annotation_sets WHERE id = ? AND user_id = ?
    `), id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TrimSets deletes all but the keep most recent sets of one user and
// reports how many rows went away.
func (r *SQLRepository) TrimSets(ctx context.Context, userID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := r.db.ExecContext(ctx, r.bind(`
        DELETE FROM annotation_sets
        WHERE user_id = ? AND id NOT IN (
            SELECT id FROM annotation_sets
            WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
        )
    `), userID, userID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
