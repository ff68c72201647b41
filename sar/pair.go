// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package sar

import (
	"regexp"
	"strings"
)

// PairKind distinguishes the two interferometric pair families.
type PairKind byte

const (
	// InvalidPairKind is the zero value.
	InvalidPairKind = PairKind(iota)
	// ShortPair joins temporally adjacent acquisitions.
	ShortPair
	// LongPair skips one intermediate acquisition.
	LongPair
)

// PairKinds lists the valid pair kinds.
var PairKinds = []PairKind{ShortPair, LongPair}

// String returns the kind name used in metadata and directory layout.
func (kind PairKind) String() string {
	switch kind {
	case ShortPair:
		return "short"
	case LongPair:
		return "long"
	}
	return "invalid"
}

// ParsePairKind parses "short" or "long".
func ParsePairKind(s string) (PairKind, error) {
	switch strings.ToLower(s) {
	case "short":
		return ShortPair, nil
	case "long":
		return LongPair, nil
	}
	return InvalidPairKind, Error.New("invalid pair kind %q", s)
}

// Set implements pflag.Value.
func (kind *PairKind) Set(s string) error {
	parsed, err := ParsePairKind(s)
	if err != nil {
		return err
	}
	*kind = parsed
	return nil
}

// Type implements pflag.Value.
func (PairKind) Type() string { return "sar.PairKind" }

// MarshalText implements encoding.TextMarshaler.
func (kind PairKind) MarshalText() ([]byte, error) {
	if kind == InvalidPairKind {
		return nil, Error.New("invalid pair kind")
	}
	return []byte(kind.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (kind *PairKind) UnmarshalText(text []byte) error {
	return kind.Set(string(text))
}

// PairKey identifies a pairwise artifact within a partition. The master
// date is always the earlier one.
type PairKey struct {
	Master Date
	Slave  Date
	Kind   PairKind
}

// NewPairKey returns the key for the two dates, ordered so that the master
// date is the earlier one.
func NewPairKey(a, b Date, kind PairKind) PairKey {
	if b.Before(a) {
		a, b = b, a
	}
	return PairKey{Master: a, Slave: b, Kind: kind}
}

// Baseline returns the temporal baseline in days.
func (key PairKey) Baseline() int { return key.Master.DaysTo(key.Slave) }

// Dates returns the two dates of the pair.
func (key PairKey) Dates() (master, slave Date) { return key.Master, key.Slave }

// Involves reports whether the pair references the given date.
func (key PairKey) Involves(d Date) bool { return key.Master == d || key.Slave == d }

// String returns a log friendly form like "20240101_20240113/short".
func (key PairKey) String() string {
	return key.Master.String() + "_" + key.Slave.String() + "/" + key.Kind.String()
}

// ParsePairKey parses the canonical form produced by String, e.g.
// "20240101_20240113/short".
func ParsePairKey(s string) (PairKey, error) {
	base, kindName, ok := strings.Cut(s, "/")
	if !ok {
		return PairKey{}, Error.New("invalid pair key %q", s)
	}
	masterName, slaveName, ok := strings.Cut(base, "_")
	if !ok {
		return PairKey{}, Error.New("invalid pair key %q", s)
	}
	master, err := ParseDate(masterName)
	if err != nil {
		return PairKey{}, Error.New("invalid pair key %q: %w", s, err)
	}
	slave, err := ParseDate(slaveName)
	if err != nil {
		return PairKey{}, Error.New("invalid pair key %q: %w", s, err)
	}
	if !slave.After(master) {
		return PairKey{}, Error.New("pair key %q has non-increasing dates", s)
	}
	kind, err := ParsePairKind(kindName)
	if err != nil {
		return PairKey{}, Error.New("invalid pair key %q: %w", s, err)
	}
	return PairKey{Master: master, Slave: slave, Kind: kind}, nil
}

// ArtifactName returns the canonical interferogram file name, e.g.
// "Ifg_20240101_20240113.dim". Long pairs carry the _LONG suffix.
func (key PairKey) ArtifactName() string {
	name := "Ifg_" + key.Master.String() + "_" + key.Slave.String()
	if key.Kind == LongPair {
		name += "_LONG"
	}
	return name + ".dim"
}

// DataDirName returns the name of the companion raster directory.
func (key PairKey) DataDirName() string {
	return strings.TrimSuffix(key.ArtifactName(), ".dim") + ".data"
}

// Less orders keys by master date, slave date, then kind.
func (key PairKey) Less(other PairKey) bool {
	if key.Master != other.Master {
		return key.Master.Before(other.Master)
	}
	if key.Slave != other.Slave {
		return key.Slave.Before(other.Slave)
	}
	return key.Kind < other.Kind
}

// pairArtifact matches names produced by ArtifactName.
var pairArtifact = regexp.MustCompile(`^Ifg_(\d{8})_(\d{8})(_LONG)?\.dim$`)

// singleArtifact matches the acquisition date embedded in per-date artifact
// names, e.g. "S1A_IW_SLC_20240101_HAAlpha.dim".
var singleArtifact = regexp.MustCompile(`SLC_(\d{8})`)

// ParseSingleArtifact extracts the acquisition date from a per-date artifact
// file name.
func ParseSingleArtifact(name string) (Date, error) {
	m := singleArtifact.FindStringSubmatch(name)
	if m == nil {
		return Date{}, Error.New("no acquisition date in artifact name %q", name)
	}
	return ParseDate(m[1])
}

// ParsePairArtifact parses an interferogram file name back into its key.
func ParsePairArtifact(name string) (PairKey, error) {
	m := pairArtifact.FindStringSubmatch(name)
	if m == nil {
		return PairKey{}, Error.New("unrecognized artifact name %q", name)
	}
	master, err := ParseDate(m[1])
	if err != nil {
		return PairKey{}, err
	}
	slave, err := ParseDate(m[2])
	if err != nil {
		return PairKey{}, err
	}
	if !slave.After(master) {
		return PairKey{}, Error.New("artifact %q has non-increasing dates", name)
	}
	kind := ShortPair
	if m[3] != "" {
		kind = LongPair
	}
	return PairKey{Master: master, Slave: slave, Kind: kind}, nil
}
