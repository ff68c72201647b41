// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package main

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// selection names a single partition through flags.
type selection struct {
	Orbit    sar.OrbitDirection `help:"orbit direction (ascending or descending)"`
	Subswath sar.Subswath       `help:"subswath (IW1, IW2 or IW3)"`
	Track    int                `help:"relative orbit number (1..175)" default:"0"`
}

// Partition returns the fully specified partition.
func (sel selection) Partition() (sar.Partition, error) {
	part := sar.Partition{
		Orbit:    sel.Orbit,
		Subswath: sel.Subswath,
		Track:    sar.Track(sel.Track),
	}
	if !part.Valid() {
		return sar.Partition{}, errs.New("--orbit, --subswath and --track are required")
	}
	return part, nil
}

// dateSource names where a partition's acquisition date list comes from:
// either a directory of raw .SAFE scenes or a plain date file.
type dateSource struct {
	SceneDir  string `help:"directory of raw .SAFE acquisitions to take dates from" default:""`
	DatesFile string `help:"file with one acquisition date (YYYYMMDD) per line" default:""`
}

// dates loads the sorted distinct date list. Scene directories are filtered
// to the given track; the track is ignored for date files.
func (src dateSource) dates(track sar.Track) ([]sar.Date, error) {
	switch {
	case src.DatesFile != "":
		return readDatesFile(src.DatesFile)
	case src.SceneDir != "":
		scenes, err := scanScenes(src.SceneDir)
		if err != nil {
			return nil, err
		}
		var dates []sar.Date
		for _, scene := range scenes {
			if scene.Track == track {
				dates = append(dates, scene.Date)
			}
		}
		return sar.SortedUniqueDates(dates), nil
	}
	return nil, errs.New("either --scene-dir or --dates-file is required")
}

func readDatesFile(path string) ([]sar.Date, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = file.Close() }()

	var dates []sar.Date
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		date, err := sar.ParseDate(line)
		if err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(err)
	}
	return sar.SortedUniqueDates(dates), nil
}

// scanScenes parses every .SAFE entry of a directory. Entries that do not
// follow the scene naming convention are logged and skipped.
func scanScenes(dir string) ([]sar.Scene, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	var scenes []sar.Scene
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".SAFE") {
			continue
		}
		scene, err := sar.ParseScene(name)
		if err != nil {
			zap.L().Warn("Skipping unrecognized scene", zap.String("Name", name), zap.Error(err))
			continue
		}
		scenes = append(scenes, scene)
	}
	sort.Slice(scenes, func(i, k int) bool { return scenes[i].Name < scenes[k].Name })
	return scenes, nil
}

// scenePath returns the absolute path of a scene inside the scanned dir.
func scenePath(dir string, scene sar.Scene) string {
	return filepath.Join(dir, scene.Name)
}
