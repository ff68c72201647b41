// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package boltdb implements the kvstore interface on an embedded bolt
// database file.
package boltdb

import (
	"context"
	"time"

	"github.com/boltdb/bolt"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore"
)

var (
	// Error is a boltdb error.
	Error = errs.Class("boltdb")

	mon = monkit.Package()
)

var defaultTimeout = 1 * time.Second

const (
	// fileMode sets permissions so only the owner can read and write.
	fileMode = 0600
)

// Client is the entrypoint into a bolt database.
type Client struct {
	db     *bolt.DB
	Path   string
	Bucket []byte
}

// New instantiates a new bolt client against the file at path, storing
// entries in the named bucket.
func New(path, bucket string) (*Client, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, Error.Wrap(errs.Combine(err, db.Close()))
	}

	return &Client{
		db:     db,
		Path:   path,
		Bucket: []byte(bucket),
	}, nil
}

// Put adds a value to the provided key.
func (client *Client) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) (err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}
	return Error.Wrap(client.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(client.Bucket).Put(key, value)
	}))
}

// Get looks up the provided key.
func (client *Client) Get(ctx context.Context, key kvstore.Key) (_ kvstore.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return nil, kvstore.ErrEmptyKey.New("")
	}

	var value kvstore.Value
	err = client.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(client.Bucket).Get(key)
		if data == nil {
			return kvstore.ErrKeyNotFound.New("%q", key)
		}
		value = append(kvstore.Value(nil), data...)
		return nil
	})
	if err != nil {
		if kvstore.ErrKeyNotFound.Has(err) {
			return nil, err
		}
		return nil, Error.Wrap(err)
	}
	return value, nil
}

// Delete deletes a key/value pair.
func (client *Client) Delete(ctx context.Context, key kvstore.Key) (err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}
	return Error.Wrap(client.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(client.Bucket).Delete(key)
	}))
}

// Range iterates over all items in key order.
func (client *Client) Range(ctx context.Context, fn func(context.Context, kvstore.Key, kvstore.Value) error) (err error) {
	defer mon.Task()(&ctx)(&err)
	return client.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(client.Bucket).ForEach(func(key, value []byte) error {
			return fn(ctx, kvstore.Key(key), kvstore.Value(value))
		})
	})
}

// Close closes the bolt client.
func (client *Client) Close() error {
	return Error.Wrap(client.db.Close())
}
