// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package storelogger wraps a kvstore with debug logging.
package storelogger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore"
)

var id int64

// Logger implements a zap.Logger for kvstore.Store.
type Logger struct {
	log   *zap.Logger
	store kvstore.Store
}

// New creates a new Logger with log and store.
func New(log *zap.Logger, store kvstore.Store) *Logger {
	loggerid := atomic.AddInt64(&id, 1)
	name := log.Name()
	if name == "" {
		log = log.With(zap.Int64("id", loggerid))
	}
	return &Logger{log, store}
}

// Put adds a value to the provided key, creating or overwriting as needed.
func (store *Logger) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) error {
	store.log.Debug("Put", zap.ByteString("key", key), zap.Int("value length", len(value)), zap.Binary("truncated value", truncate(value)))
	return store.store.Put(ctx, key, value)
}

// Get returns the value for a key.
func (store *Logger) Get(ctx context.Context, key kvstore.Key) (kvstore.Value, error) {
	store.log.Debug("Get", zap.ByteString("key", key))
	return store.store.Get(ctx, key)
}

// Delete deletes a key/value pair.
func (store *Logger) Delete(ctx context.Context, key kvstore.Key) error {
	store.log.Debug("Delete", zap.ByteString("key", key))
	return store.store.Delete(ctx, key)
}

// Range iterates over all items.
func (store *Logger) Range(ctx context.Context, fn func(context.Context, kvstore.Key, kvstore.Value) error) error {
	store.log.Debug("Range")
	return store.store.Range(ctx, fn)
}

// Close closes the store.
func (store *Logger) Close() error {
	store.log.Debug("Close")
	return store.store.Close()
}

func truncate(v kvstore.Value) (t []byte) {
	if len(v)-1 < 10 {
		t = []byte(v)
	} else {
		t = v[:10]
	}
	return t
}
