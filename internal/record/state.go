package record

import (
	"fmt"
	"strings"
)

// State is the decoding progress of a Record.
type State int

const (
	// Unknown means no decoder has reported anything yet.
	Unknown State = iota
	// Metadata means dimensions and EXIF are available.
	Metadata
	// PreviewImage means low-resolution pixels are available.
	PreviewImage
	// FullImage means decoding finished.
	FullImage
	// Error is a recoverable failure; decoding may be retried.
	Error
	// Cancelled means the user stopped decoding.
	Cancelled
	// Fatal is an unrecoverable failure. Later Error and Cancelled
	// transitions are ignored.
	Fatal
)

func (s State) String() string {
	switch s {
	case Metadata:
		return "metadata"
	case PreviewImage:
		return "preview"
	case FullImage:
		return "full"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// absorbs reports whether a record in state s ignores a move to next.
func (s State) absorbs(next State) bool {
	return s == Fatal && (next == Error || next == Cancelled)
}

// CheckState is the tri-state user mark on a Record.
type CheckState int

const (
	Unchecked CheckState = iota
	PartiallyChecked
	Checked
)

func (c CheckState) String() string {
	switch c {
	case PartiallyChecked:
		return "partially_checked"
	case Checked:
		return "checked"
	default:
		return "unchecked"
	}
}

// MarshalText encodes the check state by name.
func (c CheckState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (c *CheckState) UnmarshalText(text []byte) error {
	parsed, err := ParseCheckState(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCheckState converts a name ("checked", "unchecked",
// "partially_checked") to a CheckState.
func ParseCheckState(s string) (CheckState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unchecked", "false":
		return Unchecked, nil
	case "partially_checked", "partial":
		return PartiallyChecked, nil
	case "checked", "true":
		return Checked, nil
	default:
		return Unchecked, fmt.Errorf("invalid check state %q", s)
	}
}

// ViewMode carries the presentation settings that affect how RAW and
// processed siblings are shown.
type ViewMode struct {
	// CombineRawJPEG shows a RAW/processed pair as one item. The processed
	// file is visible and holds the check mark for both.
	CombineRawJPEG bool
}

// pairedCheckState returns the check state presented for a record given
// its own mark and its sibling's. In combine mode a RAW record with a
// processed sibling presents the sibling's mark.
func pairedCheckState(own, sibling CheckState, hasSibling, isRaw bool, mode ViewMode) CheckState {
	if mode.CombineRawJPEG && hasSibling && isRaw {
		return sibling
	}
	return own
}
