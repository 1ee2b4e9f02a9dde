// Package persist provides the on-disk primitives shared by every darve-server
// store: a versioned bolt database wrapper and a leveled file logger.
package persist

import "errors"

var (
	// ErrBadHeader indicates that the data file opened is not the file
	// expected given the metadata header.
	ErrBadHeader = errors.New("wrong header")
	// ErrBadVersion indicates that the data file opened was built by an
	// incompatible version of darve-server.
	ErrBadVersion = errors.New("incompatible version")
)

// Metadata contains the header and version of the data being stored.
type Metadata struct {
	Header  string
	Version string
}
