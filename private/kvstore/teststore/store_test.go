// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package teststore_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore/teststore"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore/testsuite"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/testcontext"
)

func TestSuite(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	testsuite.RunTests(t, ctx, teststore.New())
}

func TestForcedError(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := teststore.New()
	require.NoError(t, store.Put(ctx, kvstore.Key("a"), kvstore.Value("1")))

	forced := errs.New("forced failure")
	store.SetError(forced)

	_, err := store.Get(ctx, kvstore.Key("a"))
	require.ErrorIs(t, err, forced)
	require.ErrorIs(t, store.Put(ctx, kvstore.Key("b"), kvstore.Value("2")), forced)
	require.ErrorIs(t, store.Delete(ctx, kvstore.Key("a")), forced)

	store.SetError(nil)
	value, err := store.Get(ctx, kvstore.Key("a"))
	require.NoError(t, err)
	require.Equal(t, kvstore.Value("1"), value)
}
