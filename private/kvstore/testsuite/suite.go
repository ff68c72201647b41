// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package testsuite contains a shared conformance suite for kvstore
// implementations.
package testsuite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore"
)

// RunTests runs the kvstore conformance suite against store.
func RunTests(t *testing.T, ctx context.Context, store kvstore.Store) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, ctx, store) })
	t.Run("EmptyKey", func(t *testing.T) { testEmptyKey(t, ctx, store) })
	t.Run("Range", func(t *testing.T) { testRange(t, ctx, store) })
}

func testCRUD(t *testing.T, ctx context.Context, store kvstore.Store) {
	items := []kvstore.Item{
		{Key: kvstore.Key("asce_iw1_t042"), Value: kvstore.Value(`{"track_id":"T042"}`)},
		{Key: kvstore.Key("desc_iw2_t117"), Value: kvstore.Value(`{"track_id":"T117"}`)},
		{Key: kvstore.Key("desc_iw3_t001"), Value: kvstore.Value(`{"track_id":"T001"}`)},
	}

	for _, item := range items {
		err := store.Put(ctx, item.Key, item.Value)
		require.NoError(t, err, "store.Put %q", item.Key)
	}
	defer func() {
		for _, item := range items {
			_ = store.Delete(ctx, item.Key)
		}
	}()

	for _, item := range items {
		value, err := store.Get(ctx, item.Key)
		require.NoError(t, err, "store.Get %q", item.Key)
		require.Equal(t, item.Value, value, "store.Get %q", item.Key)
	}

	// overwrite
	err := store.Put(ctx, items[0].Key, kvstore.Value("updated"))
	require.NoError(t, err)
	value, err := store.Get(ctx, items[0].Key)
	require.NoError(t, err)
	require.Equal(t, kvstore.Value("updated"), value)

	// missing key
	_, err = store.Get(ctx, kvstore.Key("asce_iw1_t999"))
	require.Error(t, err)
	require.True(t, kvstore.ErrKeyNotFound.Has(err), "expected ErrKeyNotFound, got %v", err)

	// delete
	err = store.Delete(ctx, items[1].Key)
	require.NoError(t, err)
	_, err = store.Get(ctx, items[1].Key)
	require.True(t, kvstore.ErrKeyNotFound.Has(err), "expected ErrKeyNotFound, got %v", err)
}

func testEmptyKey(t *testing.T, ctx context.Context, store kvstore.Store) {
	err := store.Put(ctx, kvstore.Key(""), kvstore.Value("data"))
	require.Error(t, err)
	assert.True(t, kvstore.ErrEmptyKey.Has(err), "Put empty key: %v", err)

	_, err = store.Get(ctx, kvstore.Key(""))
	require.Error(t, err)
	assert.True(t, kvstore.ErrEmptyKey.Has(err), "Get empty key: %v", err)

	err = store.Delete(ctx, kvstore.Key(""))
	require.Error(t, err)
	assert.True(t, kvstore.ErrEmptyKey.Has(err), "Delete empty key: %v", err)
}

func testRange(t *testing.T, ctx context.Context, store kvstore.Store) {
	items := []kvstore.Item{
		{Key: kvstore.Key("range/a"), Value: kvstore.Value("1")},
		{Key: kvstore.Key("range/b"), Value: kvstore.Value("2")},
		{Key: kvstore.Key("range/c"), Value: kvstore.Value("3")},
	}
	for _, item := range items {
		require.NoError(t, store.Put(ctx, item.Key, item.Value))
	}
	defer func() {
		for _, item := range items {
			_ = store.Delete(ctx, item.Key)
		}
	}()

	seen := map[string]string{}
	err := store.Range(ctx, func(ctx context.Context, key kvstore.Key, value kvstore.Value) error {
		seen[key.String()] = string(value)
		return nil
	})
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, string(item.Value), seen[item.Key.String()])
	}
}
