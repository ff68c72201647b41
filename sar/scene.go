// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package sar

import (
	"path/filepath"
	"regexp"
	"strconv"
)

// sceneName matches the Sentinel-1 SLC product naming convention, capturing
// the satellite unit, the acquisition start date and the absolute orbit.
var sceneName = regexp.MustCompile(`S1([ABC])_IW_SLC__1S\w+_(\d{8})T\d{6}_\d{8}T\d{6}_(\d{6})_`)

// Scene is a parsed raw acquisition identifier. Scenes are created by the
// discovery subsystem and are read-only to this module.
type Scene struct {
	Name          string
	Satellite     byte
	Date          Date
	AbsoluteOrbit int
	Track         Track
}

// ParseScene parses a Sentinel-1 SLC product name, which may include a
// leading path or a trailing suffix, and derives the relative orbit.
func ParseScene(name string) (Scene, error) {
	base := filepath.Base(name)
	m := sceneName.FindStringSubmatch(base)
	if m == nil {
		return Scene{}, Error.New("unrecognized scene name %q", base)
	}
	date, err := ParseDate(m[2])
	if err != nil {
		return Scene{}, err
	}
	orbit, err := strconv.Atoi(m[3])
	if err != nil {
		return Scene{}, Error.New("invalid absolute orbit in %q", base)
	}
	track, err := TrackOf(m[1][0], orbit)
	if err != nil {
		return Scene{}, err
	}
	return Scene{
		Name:          base,
		Satellite:     m[1][0],
		Date:          date,
		AbsoluteOrbit: orbit,
		Track:         track,
	}, nil
}

// TrackOf derives the relative orbit from the satellite unit and the
// absolute orbit number. The phasing offset differs per unit.
func TrackOf(satellite byte, absoluteOrbit int) (Track, error) {
	var offset int
	switch satellite {
	case 'A', 'C':
		offset = 73
	case 'B':
		offset = 27
	default:
		return 0, Error.New("unknown satellite unit %q", string(satellite))
	}
	rel := (absoluteOrbit - offset) % TrackCount
	if rel < 0 {
		rel += TrackCount
	}
	return Track(rel + 1), nil
}
