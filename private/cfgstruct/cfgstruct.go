// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package cfgstruct binds configuration structs to flags using the help and
// default struct tags.
package cfgstruct

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the default error class for the cfgstruct package.
var Error = errs.Class("cfgstruct")

// BindOpt adjusts how a configuration struct is bound to flags.
type BindOpt struct {
	vars  map[string]string
	setup bool
}

// ConfDir sets a variable for default value substitution of $CONFDIR.
func ConfDir(path string) BindOpt {
	return BindOpt{vars: map[string]string{"CONFDIR": path}}
}

// SetupMode annotates all bound flags as setup flags, which are excluded
// from saved configuration files.
func SetupMode() BindOpt {
	return BindOpt{setup: true}
}

// SetupFlag registers an early configuration flag, such as the config
// directory, that the process reads before loading the config file.
func SetupFlag(log *zap.Logger, cmd *cobra.Command, dest *string, name, value, usage string) {
	cmd.PersistentFlags().StringVar(dest, name, value, usage)
	if err := cmd.PersistentFlags().SetAnnotation(name, "setup", []string{"true"}); err != nil {
		log.Error("Failed to set flag annotation", zap.String("Flag", name), zap.Error(err))
	}
}

type bindConfig struct {
	vars  map[string]string
	setup bool
}

// Bind registers a flag for every tagged field of the config struct. Flag
// names are the lowercased dotted field paths, e.g. "retention.keep-first".
// Defaults come from the default tag with $VARIABLE substitution applied.
func Bind(flags *pflag.FlagSet, config interface{}, opts ...BindOpt) {
	ptr := reflect.ValueOf(config)
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Struct {
		panic(Error.New("config must be a pointer to a struct: %T", config))
	}

	bc := bindConfig{vars: map[string]string{}}
	for _, opt := range opts {
		for key, value := range opt.vars {
			bc.vars[key] = value
		}
		bc.setup = bc.setup || opt.setup
	}

	bindStruct(flags, ptr.Elem(), "", bc)
}

func bindStruct(flags *pflag.FlagSet, structval reflect.Value, prefix string, bc bindConfig) {
	typ := structval.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		fieldval := structval.Field(i)
		name := prefix + hyphenate(field.Name)

		// a field that implements pflag.Value binds directly
		if value, ok := fieldval.Addr().Interface().(pflag.Value); ok {
			bindValue(flags, field, name, value, bc)
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			bindStruct(flags, fieldval, name+".", bc)
			continue
		}

		bindField(flags, field, name, fieldval, bc)
	}
}

func bindValue(flags *pflag.FlagSet, field reflect.StructField, name string, value pflag.Value, bc bindConfig) {
	def := expand(field.Tag.Get("default"), bc.vars)
	if def != "" {
		if err := value.Set(def); err != nil {
			panic(Error.New("invalid default for %s: %v", name, err))
		}
	}
	flags.Var(value, name, field.Tag.Get("help"))
	annotate(flags, field, name, bc)
}

func bindField(flags *pflag.FlagSet, field reflect.StructField, name string, fieldval reflect.Value, bc bindConfig) {
	help := field.Tag.Get("help")
	def := expand(field.Tag.Get("default"), bc.vars)
	addr := fieldval.Addr().Interface()

	switch typed := addr.(type) {
	case *string:
		flags.StringVar(typed, name, def, help)
	case *bool:
		flags.BoolVar(typed, name, parseDefault(name, def, false, strconv.ParseBool), help)
	case *int:
		flags.IntVar(typed, name, parseDefault(name, def, 0, strconv.Atoi), help)
	case *int64:
		flags.Int64Var(typed, name, parseDefault(name, def, int64(0), parseInt64), help)
	case *uint:
		flags.UintVar(typed, name, parseDefault(name, def, uint(0), parseUint), help)
	case *uint64:
		flags.Uint64Var(typed, name, parseDefault(name, def, uint64(0), parseUint64), help)
	case *float64:
		flags.Float64Var(typed, name, parseDefault(name, def, float64(0), parseFloat64), help)
	case *time.Duration:
		flags.DurationVar(typed, name, parseDefault(name, def, time.Duration(0), time.ParseDuration), help)
	default:
		panic(Error.New("unsupported field type %s for %s", field.Type, name))
	}
	annotate(flags, field, name, bc)
}

func annotate(flags *pflag.FlagSet, field reflect.StructField, name string, bc bindConfig) {
	if bc.setup || field.Tag.Get("setup") == "true" {
		must(flags.SetAnnotation(name, "setup", []string{"true"}))
	}
	if field.Tag.Get("hidden") == "true" {
		must(flags.MarkHidden(name))
	}
}

func must(err error) {
	if err != nil {
		panic(Error.Wrap(err))
	}
}

func parseDefault[T any](name, def string, zero T, parse func(string) (T, error)) T {
	if def == "" {
		return zero
	}
	parsed, err := parse(def)
	if err != nil {
		panic(Error.New("invalid default for %s: %q", name, def))
	}
	return parsed
}

func parseInt64(s string) (int64, error)     { return strconv.ParseInt(s, 10, 64) }
func parseUint64(s string) (uint64, error)   { return strconv.ParseUint(s, 10, 64) }
func parseFloat64(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func parseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return uint(v), err
}

// expand substitutes $NAME references from vars.
func expand(s string, vars map[string]string) string {
	for name, value := range vars {
		s = strings.ReplaceAll(s, "$"+name, value)
	}
	return s
}

// hyphenate converts a Go field name to its flag form, e.g. "KeepFirst"
// becomes "keep-first".
func hyphenate(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !lastUpper(name, i) {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lastUpper reports whether the rune before index i is uppercase, keeping
// acronym runs like "URL" together.
func lastUpper(name string, i int) bool {
	if i == 0 {
		return false
	}
	prev := name[i-1]
	return prev >= 'A' && prev <= 'Z'
}
