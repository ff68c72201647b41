// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package fpath implements cross platform file path helpers.
package fpath

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zeebo/errs"
)

// Error is the default error class for the fpath package.
var Error = errs.Class("fpath")

// ApplicationDir returns the absolute application specific directory under
// the platform's configuration root.
func ApplicationDir(subdir ...string) string {
	for i := range subdir {
		if subdir[i] == "" {
			continue
		}
		if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
			subdir[i] = strings.ToUpper(subdir[i][:1]) + subdir[i][1:]
		} else {
			subdir[i] = strings.ToLower(subdir[i])
		}
	}

	var appdir string
	home := os.Getenv("HOME")

	switch runtime.GOOS {
	case "windows":
		// uses the AppData directory
		for _, env := range []string{"AppData", "AppDataLocal", "UserProfile", "Home"} {
			val := os.Getenv(env)
			if val != "" {
				appdir = val
				break
			}
		}
	case "darwin":
		appdir = filepath.Join(home, "Library", "Application Support")
	case "linux":
		fallthrough
	default:
		appdir = os.Getenv("XDG_DATA_HOME")
		if appdir == "" && home != "" {
			appdir = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(append([]string{appdir}, subdir...)...)
}

// IsValidSetupDir checks if a directory is valid for setup configuration:
// either it does not exist, or it does not contain a config file yet.
func IsValidSetupDir(name string) (ok bool, err error) {
	_, err = os.Stat(filepath.Join(name, "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, Error.Wrap(err)
	}
	return false, nil
}
