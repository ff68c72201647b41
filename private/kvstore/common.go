// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package kvstore declares the interface to a simple key value store,
// used for the advisory metadata mirror.
package kvstore

import (
	"bytes"
	"context"

	"github.com/zeebo/errs"
)

var (
	// Error is a kvstore error.
	Error = errs.Class("kvstore")
	// ErrKeyNotFound is returned when a lookup misses.
	ErrKeyNotFound = errs.Class("key not found")
	// ErrEmptyKey is returned when an empty key is used.
	ErrEmptyKey = errs.Class("empty key")
)

// Key is the type for the keys in a `Store`.
type Key []byte

// Value is the type for the values in a `Store`.
type Value []byte

// Item is a key/value pair.
type Item struct {
	Key   Key
	Value Value
}

// Store describes an interface for key/value stores.
type Store interface {
	// Put adds a value to the provided key, creating or overwriting as needed.
	Put(ctx context.Context, key Key, value Value) error
	// Get returns the value for a key, or ErrKeyNotFound.
	Get(ctx context.Context, key Key) (Value, error)
	// Delete deletes a key/value pair, or returns ErrKeyNotFound.
	Delete(ctx context.Context, key Key) error
	// Range iterates over all items, stopping at the first error.
	Range(ctx context.Context, fn func(context.Context, Key, Value) error) error
	// Close closes the store.
	Close() error
}

// IsZero returns true if the key struct is a zero value.
func (key Key) IsZero() bool { return len(key) == 0 }

// IsZero returns true if the value struct is a zero value.
func (value Value) IsZero() bool { return len(value) == 0 }

// String returns the key as a string.
func (key Key) String() string { return string(key) }

// Less compares keys lexically.
func (key Key) Less(b Key) bool { return bytes.Compare(key, b) < 0 }

// Equal reports whether keys are equal.
func (key Key) Equal(b Key) bool { return bytes.Equal(key, b) }

// CloneKey creates a copy of the key.
func CloneKey(key Key) Key { return append(Key{}, key...) }

// CloneValue creates a copy of the value.
func CloneValue(value Value) Value { return append(Value{}, value...) }
