//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package sequence

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

const SQLiteFileName = "sequences.sqlite"

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteBackend persists boundaries in a SQLite database. The database runs
// in WAL mode with synchronous=FULL, so every committed Put is durable and
// the sync flag does not change the write path. Boundaries are stored as 8
// byte blobs because SQLite integers are signed.
type SQLiteBackend struct {
	homeDir string
	log     logrus.FieldLogger
	db      *sql.DB
}

func NewSQLiteBackend(homeDir string, logger logrus.FieldLogger) *SQLiteBackend {
	return &SQLiteBackend{
		homeDir: homeDir,
		log:     logger.WithField("component", "sequence_sqlite_backend"),
	}
}

func (s *SQLiteBackend) Open() error {
	if err := os.MkdirAll(s.homeDir, 0o777); err != nil {
		return fmt.Errorf("create root directory %q: %w", s.homeDir, err)
	}

	path := filepath.Join(s.homeDir, SQLiteFileName)
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("sqlite: open: %w", err)
	}
	// a single writer connection keeps upserts serialized inside the driver
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: create schema: %w", err)
	}

	s.db = db
	s.log.WithField("action", "sequence_backend_open").
		WithField("path", path).
		Debug("opened sequence sqlite database")
	return nil
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) (uint64, bool, error) {
	if s.db == nil {
		return 0, false, errors.New("sqlite backend not open")
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT boundary FROM boundaries WHERE space = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "sqlite: read boundary")
	}

	v, err := decodeBoundary(data)
	if err != nil {
		return 0, false, errors.Wrapf(err, "sqlite: space %q", key)
	}
	return v, true, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, key string, value uint64, sync bool) error {
	if s.db == nil {
		return errors.New("sqlite backend not open")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boundaries (space, boundary, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(space) DO UPDATE SET boundary = excluded.boundary, updated_at = excluded.updated_at`,
		key, encodeBoundary(value), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "sqlite: write boundary of space %q", key)
	}
	return nil
}

func (s *SQLiteBackend) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
