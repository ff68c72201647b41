// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package retention

// Status is a type defining how far the retention sweep is allowed to go.
type Status uint32

const (
	// Disabled means the sweep does nothing at all.
	Disabled Status = iota + 1
	// ReportOnly means the sweep analyzes and reports deletable
	// acquisitions without removing anything.
	ReportOnly
	// Enabled means the sweep physically deletes verified acquisitions.
	Enabled
)

// Set implements pflag.Value.
func (v *Status) Set(s string) error {
	switch s {
	case "disabled":
		*v = Disabled
	case "report-only":
		*v = ReportOnly
	case "enabled":
		*v = Enabled
	default:
		return Error.New("invalid status %q", s)
	}
	return nil
}

// Type implements pflag.Value.
func (*Status) Type() string { return "retention.Status" }

// String implements pflag.Value.
func (v *Status) String() string {
	switch *v {
	case Disabled:
		return "disabled"
	case ReportOnly:
		return "report-only"
	case Enabled:
		return "enabled"
	default:
		return "invalid"
	}
}
