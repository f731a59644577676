package posixmq

import (
	"strings"
)

// MaxNameLength is the maximum length of a queue name, including the leading
// slash. It matches NAME_MAX on Linux.
const MaxNameLength = 255

// Name is a validated posix message queue name.
//
// The zero value is not a valid name. The only way to get a valid Name is
// through NewName, so any function accepting a Name can assume it already
// satisfies the facility's naming rules.
type Name struct {
	raw string
}

// NewName validates raw against the naming rules from mq_overview(7) and
// wraps it into a Name.
//
// A valid name is non-empty, starts with a slash, contains no other slashes,
// and is at most MaxNameLength characters long. Violations are reported as
// InvalidNameError.
func NewName(raw string) (Name, error) {
	if raw == "" {
		return Name{}, &InvalidNameError{Name: raw, Reason: "name is empty"}
	}
	if !strings.HasPrefix(raw, "/") {
		return Name{}, &InvalidNameError{Name: raw, Reason: "name must start with a slash"}
	}
	// The C library has a dedicated error return for a bare "/", so people
	// must actually have tried it.
	if raw == "/" {
		return Name{}, &InvalidNameError{Name: raw, Reason: "name must be a slash followed by one or more characters"}
	}
	if len(raw) > MaxNameLength {
		return Name{}, &InvalidNameError{Name: raw, Reason: "name exceeds 255 characters"}
	}
	if strings.Contains(raw[1:], "/") {
		return Name{}, &InvalidNameError{Name: raw, Reason: "name contains more than one slash"}
	}
	// The name crosses the syscall boundary as a C string.
	if strings.ContainsRune(raw, 0) {
		return Name{}, &InvalidNameError{Name: raw, Reason: "name contains a NUL byte"}
	}
	return Name{raw: raw}, nil
}

// String returns the validated name, exactly as it was passed to NewName.
func (n Name) String() string {
	return n.raw
}
