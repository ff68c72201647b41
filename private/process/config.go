// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package process

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	yaml "gopkg.in/yaml.v3"
)

// Viper returns a viper instance for the command with flags, environment
// and the config file in the config directory layered in.
func Viper(cmd *cobra.Command) (*viper.Viper, error) {
	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return nil, Error.Wrap(err)
	}
	vip.SetEnvPrefix("goshawk")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	cfgFlag := cmd.Flags().Lookup("config-dir")
	if cfgFlag != nil && cfgFlag.Value.String() != "" {
		path := filepath.Join(os.ExpandEnv(cfgFlag.Value.String()), DefaultCfgFilename)
		if fileExists(path) {
			vip.SetConfigFile(path)
			if err := vip.ReadInConfig(); err != nil {
				return nil, Error.Wrap(err)
			}
		}
	}
	return vip, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SaveConfigOption adjusts SaveConfig behavior.
type SaveConfigOption func(*saveConfigOptions)

type saveConfigOptions struct {
	overrides map[string]interface{}
}

// SaveConfigWithOverrides forces the given values into the saved file.
func SaveConfigWithOverrides(overrides map[string]interface{}) SaveConfigOption {
	return func(opts *saveConfigOptions) { opts.overrides = overrides }
}

// SaveConfig writes the command's configuration to outfile. Defaults that
// the user did not change are omitted, as are setup and hidden flags.
func SaveConfig(cmd *cobra.Command, outfile string, opts ...SaveConfigOption) error {
	var options saveConfigOptions
	for _, opt := range opts {
		opt(&options)
	}

	flags := cmd.Flags()
	vip, err := Viper(cmd)
	if err != nil {
		return err
	}
	if options.overrides != nil {
		if err := vip.MergeConfigMap(options.overrides); err != nil {
			return Error.Wrap(err)
		}
	}
	settings := vip.AllSettings()

	// filter out settings that should not be persisted
	var filterSettings func(string, map[string]interface{})
	filterSettings = func(base string, settings map[string]interface{}) {
		for key, value := range settings {
			if value, ok := value.(map[string]interface{}); ok {
				filterSettings(base+key+".", value)
				if len(value) == 0 {
					delete(settings, key)
				}
				continue
			}

			fullKey := base + key
			_, overrideExists := options.overrides[fullKey]
			changed, setup, hidden := false, false, false
			if f := flags.Lookup(fullKey); f != nil {
				changed = f.Changed
				setup = readBoolAnnotation(f, "setup")
				hidden = f.Hidden
			} else {
				delete(settings, key)
				continue
			}

			if setup || hidden || (!changed && !overrideExists) {
				delete(settings, key)
			}
		}
	}
	filterSettings("", settings)

	var data []byte
	if len(settings) > 0 {
		data, err = yaml.Marshal(settings)
		if err != nil {
			return Error.Wrap(err)
		}
	}
	return atomicWrite(outfile, 0600, data)
}

func readBoolAnnotation(flag *pflag.Flag, key string) bool {
	annotation := flag.Annotations[key]
	return len(annotation) > 0 && annotation[0] == "true"
}

// atomicWrite writes data to outfile through a temp file and rename.
func atomicWrite(outfile string, mode os.FileMode, data []byte) (err error) {
	fh, err := os.CreateTemp(filepath.Dir(outfile), filepath.Base(outfile))
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, fh.Close(), os.Remove(fh.Name()))
		}
	}()
	if err := fh.Chmod(mode); err != nil {
		return Error.Wrap(err)
	}
	if _, err := fh.Write(data); err != nil {
		return Error.Wrap(err)
	}
	if err := fh.Sync(); err != nil {
		return Error.Wrap(err)
	}
	if err := fh.Close(); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(os.Rename(fh.Name(), outfile))
}
