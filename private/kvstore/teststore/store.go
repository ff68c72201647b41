// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package teststore implements an in-memory kvstore for testing.
package teststore

import (
	"context"
	"sort"
	"sync"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore"
)

// Client implements in-memory key value store.
type Client struct {
	mu sync.Mutex

	Items []kvstore.Item

	forcedError error
	version     int

	CallCount struct {
		Get    int
		Put    int
		Delete int
		Range  int
		Close  int
	}
}

// New creates a new in-memory key-value store.
func New() *Client { return &Client{} }

// SetError sets an error that all subsequent operations return.
// Set to nil to resume normal operation.
func (store *Client) SetError(err error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.forcedError = err
}

func (store *Client) indexOf(key kvstore.Key) (int, bool) {
	i := sort.Search(len(store.Items), func(k int) bool {
		return !store.Items[k].Key.Less(key)
	})

	if i >= len(store.Items) {
		return i, false
	}
	return i, store.Items[i].Key.Equal(key)
}

// Put adds a value to store.
func (store *Client) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.version++
	store.CallCount.Put++
	if store.forcedError != nil {
		return store.forcedError
	}

	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if found {
		kv := &store.Items[keyIndex]
		kv.Value = kvstore.CloneValue(value)
		return nil
	}

	store.put(keyIndex, key, value)
	return nil
}

// Get gets a value to store.
func (store *Client) Get(ctx context.Context, key kvstore.Key) (kvstore.Value, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.CallCount.Get++
	if store.forcedError != nil {
		return nil, store.forcedError
	}

	if key.IsZero() {
		return nil, kvstore.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if !found {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}

	return kvstore.CloneValue(store.Items[keyIndex].Value), nil
}

// Delete deletes key and the value.
func (store *Client) Delete(ctx context.Context, key kvstore.Key) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.version++
	store.CallCount.Delete++
	if store.forcedError != nil {
		return store.forcedError
	}

	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if !found {
		return kvstore.ErrKeyNotFound.New("%q", key)
	}

	store.delete(keyIndex)
	return nil
}

// Range iterates over all items in unspecified order.
func (store *Client) Range(ctx context.Context, fn func(context.Context, kvstore.Key, kvstore.Value) error) error {
	store.mu.Lock()
	store.CallCount.Range++
	if store.forcedError != nil {
		store.mu.Unlock()
		return store.forcedError
	}
	items := append([]kvstore.Item(nil), store.Items...)
	version := store.version
	store.mu.Unlock()

	for _, item := range items {
		if err := fn(ctx, item.Key, item.Value); err != nil {
			return err
		}

		store.mu.Lock()
		changed := store.version != version
		store.mu.Unlock()
		if changed {
			return kvstore.Error.New("store modified during range")
		}
	}
	return nil
}

// Close closes the store.
func (store *Client) Close() error {
	store.CallCount.Close++
	if store.forcedError != nil {
		return store.forcedError
	}
	return nil
}

func (store *Client) put(keyIndex int, key kvstore.Key, value kvstore.Value) {
	store.Items = append(store.Items, kvstore.Item{})
	copy(store.Items[keyIndex+1:], store.Items[keyIndex:])
	store.Items[keyIndex] = kvstore.Item{
		Key:   kvstore.CloneKey(key),
		Value: kvstore.CloneValue(value),
	}
}

func (store *Client) delete(keyIndex int) {
	copy(store.Items[keyIndex:], store.Items[keyIndex+1:])
	store.Items = store.Items[:len(store.Items)-1]
}
