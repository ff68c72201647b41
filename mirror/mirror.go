// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package mirror publishes partition metadata snapshots to an external key
// value store for cheap cross-host queries. The mirror is write-behind and
// advisory: the metadata files in canonical storage stay authoritative, and
// a failing mirror never fails the operation that triggered the publish.
package mirror

import (
	"context"
	"net/url"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore/boltdb"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore/redis"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/kvstore/storelogger"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

var (
	// Error is a mirror error.
	Error = errs.Class("mirror")

	mon = monkit.Package()
)

// boltBucket holds the partition snapshots in a bolt backed mirror.
const boltBucket = "partitions"

// Config configures the metadata mirror.
type Config struct {
	URL string `help:"key value store for metadata snapshots (redis://host:port?db=n or bolt:///path/to.db), empty disables mirroring" default:""`
}

// Mirror pushes metadata documents into a key value store. A nil *Mirror is
// a valid disabled mirror.
type Mirror struct {
	log   *zap.Logger
	store kvstore.Store
}

// Open connects the configured mirror backend. Returns nil when mirroring
// is disabled.
func Open(ctx context.Context, log *zap.Logger, config Config) (*Mirror, error) {
	if config.URL == "" {
		return nil, nil
	}

	address, err := url.Parse(config.URL)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var store kvstore.Store
	switch address.Scheme {
	case "redis":
		store, err = redis.OpenClientFrom(ctx, config.URL)
	case "bolt":
		store, err = boltdb.New(address.Path, boltBucket)
	default:
		return nil, Error.New("unsupported mirror scheme %q", address.Scheme)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return &Mirror{
		log:   log,
		store: storelogger.New(log.Named("kvstore"), store),
	}, nil
}

// Publish writes the snapshot for a partition. Errors are logged, counted
// and swallowed; the canonical save already succeeded.
func (mirror *Mirror) Publish(ctx context.Context, part sar.Partition, data []byte) {
	if mirror == nil {
		return
	}
	defer mon.Task()(&ctx)(nil)

	err := mirror.store.Put(ctx, kvstore.Key(part.ID()), kvstore.Value(data))
	if err != nil {
		mon.Counter("mirror_publish_failures").Inc(1)
		mirror.log.Warn("Metadata mirror update failed",
			zap.String("Partition", part.ID()),
			zap.Error(err))
		return
	}
	mon.Counter("mirror_publishes").Inc(1)
}

// Snapshot reads back the mirrored document for a partition.
func (mirror *Mirror) Snapshot(ctx context.Context, part sar.Partition) (_ []byte, err error) {
	if mirror == nil {
		return nil, Error.New("mirror disabled")
	}
	defer mon.Task()(&ctx)(&err)

	value, err := mirror.store.Get(ctx, kvstore.Key(part.ID()))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return value, nil
}

// Close closes the backing store.
func (mirror *Mirror) Close() error {
	if mirror == nil {
		return nil
	}
	return Error.Wrap(mirror.store.Close())
}
