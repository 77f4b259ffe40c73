// Package taskd holds the domain types shared by every taskd service: IDs,
// users and tasks, and the errors callers are expected to match on.
package taskd

import (
	"strconv"

	"github.com/taskdata/taskd/kit/platform/errors"
)

// ID is a unique identifier. Valid IDs are positive; the zero value marks an
// unassigned ID. On the wire IDs travel as decimal strings in URLs and as
// JSON numbers in bodies.
type ID int64

// InvalidID returns the zero ID.
func InvalidID() ID {
	return ID(0)
}

// Valid reports whether the ID has been assigned.
func (i ID) Valid() bool {
	return i > 0
}

// String returns the decimal representation of the ID.
func (i ID) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// IDFromString parses a decimal ID string.
func IDFromString(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return InvalidID(), &errors.Error{
			Code: errors.EInvalid,
			Msg:  "invalid ID",
		}
	}

	return ID(v), nil
}

// IDGenerator represents a generator for IDs.
type IDGenerator interface {
	// ID returns a new unique ID.
	ID() ID
}
