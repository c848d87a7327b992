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

// Package sequence contains the storage backends that persist one boundary
// value per allocation space.
package sequence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	BoltFileName = "sequences.db"

	_Version = 1
)

var (
	boundaryBucket = []byte("boundaries")
	metaBucket     = []byte("meta")
	keyConfig      = []byte("config")
)

// config is stored once in the meta bucket and describes the on-disk layout
type config struct {
	Version int
}

/*
BoltBackend persists space boundaries in a single bbolt file.

Layout:
  - meta/config: layout version
  - boundaries/<space>: 8 byte big endian boundary

Every Put runs in its own bolt transaction. Synchronous puts use db.Update,
which fsyncs before returning. Asynchronous puts go through db.Batch and may be
coalesced with concurrent writers.
*/
type BoltBackend struct {
	homeDir string
	log     logrus.FieldLogger
	db      *bolt.DB
}

// NewBoltBackend returns a backend rooted at homeDir. Call Open before use
// and Close to release the file lock.
func NewBoltBackend(homeDir string, logger logrus.FieldLogger) *BoltBackend {
	return &BoltBackend{
		homeDir: homeDir,
		log:     logger.WithField("component", "sequence_bolt_backend"),
	}
}

func (b *BoltBackend) Open() error {
	if err := os.MkdirAll(b.homeDir, 0o777); err != nil {
		return fmt.Errorf("create root directory %q: %w", b.homeDir, err)
	}

	path := filepath.Join(b.homeDir, BoltFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}

	var cfg config
	if err := db.Update(initBuckets(&cfg)); err != nil {
		db.Close()
		return fmt.Errorf("init buckets: %w", err)
	}
	if cfg.Version > _Version {
		db.Close()
		return fmt.Errorf("sequence file version %d higher than %d", cfg.Version, _Version)
	}

	b.db = db
	b.log.WithField("action", "sequence_backend_open").
		WithField("path", path).
		Debug("opened sequence bolt file")
	return nil
}

func initBuckets(cfg *config) func(tx *bolt.Tx) error {
	return func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(boundaryBucket); err != nil {
			return err
		}
		meta, err := tx.CreateBucket(metaBucket)
		if err == nil {
			*cfg = config{Version: _Version}
			data, err := json.Marshal(cfg)
			if err != nil {
				return err
			}
			return meta.Put(keyConfig, data)
		}
		meta = tx.Bucket(metaBucket)
		if meta == nil {
			return fmt.Errorf("retrieve existing bucket %q", metaBucket)
		}
		if data := meta.Get(keyConfig); len(data) > 0 {
			if err := json.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("cannot read config: %w", err)
			}
		}
		return nil
	}
}

func (b *BoltBackend) Get(ctx context.Context, key string) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if b.db == nil {
		return 0, false, errors.New("bolt backend not open")
	}

	var (
		value uint64
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(boundaryBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		v, err := decodeBoundary(data)
		if err != nil {
			return errors.Wrapf(err, "space %q", key)
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return 0, false, errors.Wrap(err, "read boundary")
	}
	return value, found, nil
}

func (b *BoltBackend) Put(ctx context.Context, key string, value uint64, sync bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db == nil {
		return errors.New("bolt backend not open")
	}

	put := func(tx *bolt.Tx) error {
		return tx.Bucket(boundaryBucket).Put([]byte(key), encodeBoundary(value))
	}

	var err error
	if sync {
		err = b.db.Update(put)
	} else {
		err = b.db.Batch(put)
	}
	if err != nil {
		return errors.Wrapf(err, "write boundary of space %q", key)
	}
	return nil
}

func (b *BoltBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func encodeBoundary(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeBoundary(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted boundary: expected 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
