// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package sar

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// OrbitDirection is the satellite pass direction of an acquisition.
type OrbitDirection byte

const (
	// InvalidOrbitDirection is the zero value.
	InvalidOrbitDirection = OrbitDirection(iota)
	// Ascending is a south to north pass.
	Ascending
	// Descending is a north to south pass.
	Descending
)

// OrbitDirections lists the valid pass directions.
var OrbitDirections = []OrbitDirection{Ascending, Descending}

// String returns the lowercase direction name.
func (dir OrbitDirection) String() string {
	switch dir {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	}
	return "invalid"
}

// DirPrefix returns the four letter directory prefix, "asce" or "desc".
func (dir OrbitDirection) DirPrefix() string {
	switch dir {
	case Ascending:
		return "asce"
	case Descending:
		return "desc"
	}
	return ""
}

// ParseOrbitDirection parses a direction name like "ascending" or the short
// directory form "asce", case insensitively.
func ParseOrbitDirection(s string) (OrbitDirection, error) {
	switch strings.ToLower(s) {
	case "ascending", "asce":
		return Ascending, nil
	case "descending", "desc":
		return Descending, nil
	}
	return InvalidOrbitDirection, Error.New("invalid orbit direction %q", s)
}

// Set implements pflag.Value.
func (dir *OrbitDirection) Set(s string) error {
	parsed, err := ParseOrbitDirection(s)
	if err != nil {
		return err
	}
	*dir = parsed
	return nil
}

// Type implements pflag.Value.
func (OrbitDirection) Type() string { return "sar.OrbitDirection" }

// MarshalText implements encoding.TextMarshaler.
func (dir OrbitDirection) MarshalText() ([]byte, error) {
	if dir == InvalidOrbitDirection {
		return nil, Error.New("invalid orbit direction")
	}
	return []byte(dir.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (dir *OrbitDirection) UnmarshalText(text []byte) error {
	return dir.Set(string(text))
}

// Subswath is one of the three sub-partitions of an interferometric wide
// swath acquisition.
type Subswath byte

const (
	// InvalidSubswath is the zero value.
	InvalidSubswath = Subswath(iota)
	// IW1 is the near range subswath.
	IW1
	// IW2 is the mid range subswath.
	IW2
	// IW3 is the far range subswath.
	IW3
)

// Subswaths lists the valid subswaths.
var Subswaths = []Subswath{IW1, IW2, IW3}

// String returns the uppercase subswath name.
func (sw Subswath) String() string {
	switch sw {
	case IW1:
		return "IW1"
	case IW2:
		return "IW2"
	case IW3:
		return "IW3"
	}
	return "invalid"
}

// Dir returns the lowercase directory form.
func (sw Subswath) Dir() string {
	switch sw {
	case IW1:
		return "iw1"
	case IW2:
		return "iw2"
	case IW3:
		return "iw3"
	}
	return ""
}

// ParseSubswath parses a subswath name like "IW1", case insensitively.
func ParseSubswath(s string) (Subswath, error) {
	switch strings.ToUpper(s) {
	case "IW1":
		return IW1, nil
	case "IW2":
		return IW2, nil
	case "IW3":
		return IW3, nil
	}
	return InvalidSubswath, Error.New("invalid subswath %q", s)
}

// Set implements pflag.Value.
func (sw *Subswath) Set(s string) error {
	parsed, err := ParseSubswath(s)
	if err != nil {
		return err
	}
	*sw = parsed
	return nil
}

// Type implements pflag.Value.
func (Subswath) Type() string { return "sar.Subswath" }

// MarshalText implements encoding.TextMarshaler.
func (sw Subswath) MarshalText() ([]byte, error) {
	if sw == InvalidSubswath {
		return nil, Error.New("invalid subswath")
	}
	return []byte(sw.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (sw *Subswath) UnmarshalText(text []byte) error {
	return sw.Set(string(text))
}

// TrackCount is the number of relative orbits in the Sentinel-1 repeat cycle.
const TrackCount = 175

// Track identifies one of the repeating orbital ground paths.
type Track int

// Valid reports whether the track is in the 1..175 range.
func (t Track) Valid() bool { return t >= 1 && t <= TrackCount }

// String returns the zero padded directory form, e.g. "t042".
func (t Track) String() string { return fmt.Sprintf("t%03d", int(t)) }

// ParseTrack parses either a bare number or the "tNNN" directory form.
func ParseTrack(s string) (Track, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "t"))
	if err != nil {
		return 0, Error.New("invalid track %q", s)
	}
	track := Track(n)
	if !track.Valid() {
		return 0, Error.New("track %d out of range", n)
	}
	return track, nil
}

// Partition is the unit of independent storage and processing. All derived
// artifacts for an orbit direction, subswath and track live under one
// partition directory and are never shared with other partitions.
type Partition struct {
	Orbit    OrbitDirection
	Subswath Subswath
	Track    Track
}

// Valid reports whether all three key components are set.
func (p Partition) Valid() bool {
	return p.Orbit != InvalidOrbitDirection && p.Subswath != InvalidSubswath && p.Track.Valid()
}

// Dir returns the canonical partition directory relative to the repository
// root, e.g. "asce_iw1/t042".
func (p Partition) Dir() string {
	return filepath.Join(p.Orbit.DirPrefix()+"_"+p.Subswath.Dir(), p.Track.String())
}

// ID returns the flat partition identifier, e.g. "asce_iw1_t042".
func (p Partition) ID() string {
	return p.Orbit.DirPrefix() + "_" + p.Subswath.Dir() + "_" + p.Track.String()
}

// String returns the flat partition identifier.
func (p Partition) String() string { return p.ID() }

// Family returns the partition family key. One raw acquisition serves all
// subswath partitions of its orbit direction and track.
func (p Partition) Family() Family {
	return Family{Orbit: p.Orbit, Track: p.Track}
}

// ParsePartitionDir parses a relative partition directory like "asce_iw1/t042".
func ParsePartitionDir(dir string) (Partition, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	if len(parts) != 2 {
		return Partition{}, Error.New("invalid partition dir %q", dir)
	}
	group := strings.SplitN(parts[0], "_", 2)
	if len(group) != 2 {
		return Partition{}, Error.New("invalid partition dir %q", dir)
	}
	orbit, err := ParseOrbitDirection(group[0])
	if err != nil {
		return Partition{}, Error.New("invalid partition dir %q", dir)
	}
	sw, err := ParseSubswath(group[1])
	if err != nil {
		return Partition{}, Error.New("invalid partition dir %q", dir)
	}
	track, err := ParseTrack(parts[1])
	if err != nil {
		return Partition{}, Error.New("invalid partition dir %q", dir)
	}
	return Partition{Orbit: orbit, Subswath: sw, Track: track}, nil
}

// Family groups the subswath partitions that share raw acquisitions.
type Family struct {
	Orbit OrbitDirection
	Track Track
}

// Partition returns the member partition for the given subswath.
func (f Family) Partition(sw Subswath) Partition {
	return Partition{Orbit: f.Orbit, Subswath: sw, Track: f.Track}
}

// String returns the flat family identifier, e.g. "asce_t042".
func (f Family) String() string {
	return f.Orbit.DirPrefix() + "_" + f.Track.String()
}
