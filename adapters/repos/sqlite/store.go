//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package sqlite is the transactional-store sink: synthetic rows are
// inserted tagged with their batch id, and the final artifact is exported
// from the table in insertion order.
package sqlite

import (
	"bufio"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/syngen/entities/flatcsv"
	"github.com/weaviate/syngen/usecases/generation"
)

const schema = `
CREATE TABLE IF NOT EXISTS original_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	amount REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS synthetic_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	amount REAL NOT NULL,
	batch_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_synthetic_batch ON synthetic_data(batch_id);
`

// Store wraps the sqlite database holding original and synthetic records.
// The shared *sql.DB serializes concurrent batch writers.
type Store struct {
	db     *sql.DB
	path   string
	logger logrus.FieldLogger
}

// New opens (or creates) the database file and initializes the tables.
func New(path string, logger logrus.FieldLogger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create db dir %q", dir)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=10000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite db %q", path)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "initialize schema of %q", path)
	}

	logger.WithField("path", path).Info("connected to sqlite store")

	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IngestOriginal replaces the original_data table contents with the given
// column values.
func (s *Store) IngestOriginal(values []float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin ingest transaction")
	}

	if _, err := tx.Exec("DELETE FROM original_data"); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "clear original_data")
	}

	stmt, err := tx.Prepare("INSERT INTO original_data(amount) VALUES(?)")
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare original_data insert")
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.Exec(v); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "insert original record")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit ingest transaction")
	}

	s.logger.WithField("records", len(values)).Info("ingested original data")
	return nil
}

// CreateArtifact returns the writer for one batch's rows. The batch id tag
// is the artifact's stable identifier.
func (s *Store) CreateArtifact(batchID int) (generation.ArtifactWriter, error) {
	return &batchWriter{store: s, batchID: batchID}, nil
}

// RemoveArtifact drops all rows of the given batch.
func (s *Store) RemoveArtifact(batchID int) error {
	_, err := s.db.Exec("DELETE FROM synthetic_data WHERE batch_id = ?", batchID)
	return errors.Wrapf(err, "delete batch %d", batchID)
}

// Count returns the total number of synthetic records stored.
func (s *Store) Count() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM synthetic_data").Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "count synthetic records")
	}
	return count, nil
}

// ClearSynthetic removes all synthetic records.
func (s *Store) ClearSynthetic() error {
	_, err := s.db.Exec("DELETE FROM synthetic_data")
	return errors.Wrap(err, "clear synthetic_data")
}

// ExportTo materializes all synthetic records, in insertion order, as the
// externally consumable flat file.
func (s *Store) ExportTo(target string, bufferBytes int) error {
	out, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "create export file %q", target)
	}
	defer out.Close()

	w := bufio.NewWriterSize(out, bufferBytes)
	if _, err := w.WriteString(flatcsv.Header + "\n"); err != nil {
		return errors.Wrap(err, "write export header")
	}

	rows, err := s.db.Query("SELECT amount FROM synthetic_data ORDER BY id")
	if err != nil {
		return errors.Wrap(err, "query synthetic records")
	}
	defer rows.Close()

	var scratch []byte
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			return errors.Wrap(err, "scan synthetic record")
		}
		scratch = flatcsv.AppendRecord(scratch[:0], amount)
		if _, err := w.Write(scratch); err != nil {
			return errors.Wrapf(err, "write export file %q", target)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate synthetic records")
	}

	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "flush export file %q", target)
	}
	if err := out.Sync(); err != nil {
		return errors.Wrapf(err, "sync export file %q", target)
	}

	s.logger.WithField("output", target).Info("exported synthetic data")
	return nil
}

// batchWriter appends one batch's chunks as tagged rows. Each chunk is one
// transaction.
type batchWriter struct {
	store   *Store
	batchID int
}

func (b *batchWriter) Append(values []float64) error {
	tx, err := b.store.db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin batch %d transaction", b.batchID)
	}

	stmt, err := tx.Prepare("INSERT INTO synthetic_data(amount, batch_id) VALUES(?, ?)")
	if err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "prepare batch %d insert", b.batchID)
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.Exec(v, b.batchID); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "insert record of batch %d", b.batchID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit batch %d transaction", b.batchID)
	}

	return nil
}

func (b *batchWriter) Close() error {
	return nil
}

func (b *batchWriter) Location() string {
	return "batch:" + strconv.Itoa(b.batchID)
}
