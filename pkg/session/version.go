package session

import "fmt"

// Current is the protocol version this head unit implements.
var Current = Version{Major: 1, Minor: 1}

// Version is a "major.minor" protocol version.
type Version struct {
	Major uint16
	Minor uint16
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}
