// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package sar holds the shared vocabulary for Sentinel-1 interferometric
// processing: acquisition dates, orbit geometry, partition keys and pair keys.
package sar

import (
	"github.com/zeebo/errs"
)

// Error is the default error class for the sar package.
var Error = errs.Class("sar")
