// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package mirror_test

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/mirror"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/testcontext"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

func TestDisabled(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	m, err := mirror.Open(ctx, zaptest.NewLogger(t), mirror.Config{})
	require.NoError(t, err)
	require.Nil(t, m)

	// a nil mirror is usable
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	m.Publish(ctx, part, []byte("{}"))
	require.NoError(t, m.Close())
}

func TestRedisBackend(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	server := miniredis.RunT(t)

	m, err := mirror.Open(ctx, zaptest.NewLogger(t),
		mirror.Config{URL: fmt.Sprintf("redis://%s?db=0", server.Addr())})
	require.NoError(t, err)
	require.NotNil(t, m)
	defer ctx.Check(m.Close)

	part := sar.Partition{Orbit: sar.Descending, Subswath: sar.IW2, Track: 117}
	m.Publish(ctx, part, []byte(`{"track_id":"desc_iw2_t117"}`))

	data, err := m.Snapshot(ctx, part)
	require.NoError(t, err)
	assert.JSONEq(t, `{"track_id":"desc_iw2_t117"}`, string(data))
}

func TestBoltBackend(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	m, err := mirror.Open(ctx, zaptest.NewLogger(t),
		mirror.Config{URL: "bolt://" + ctx.File("mirror", "kv.db")})
	require.NoError(t, err)
	require.NotNil(t, m)
	defer ctx.Check(m.Close)

	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW3, Track: 7}
	m.Publish(ctx, part, []byte(`{"track_id":"asce_iw3_t007"}`))

	data, err := m.Snapshot(ctx, part)
	require.NoError(t, err)
	assert.JSONEq(t, `{"track_id":"asce_iw3_t007"}`, string(data))
}

func TestUnsupportedScheme(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	_, err := mirror.Open(ctx, zaptest.NewLogger(t), mirror.Config{URL: "postgres://nope"})
	require.Error(t, err)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	server := miniredis.RunT(t)
	m, err := mirror.Open(ctx, zaptest.NewLogger(t),
		mirror.Config{URL: fmt.Sprintf("redis://%s", server.Addr())})
	require.NoError(t, err)

	server.Close()

	// must not panic or propagate
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	m.Publish(ctx, part, []byte("{}"))
	_ = m.Close()
}
