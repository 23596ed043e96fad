package models

import (
	"strconv"
	"sync/atomic"
)

// EntityID identifies a spawned entity for the lifetime of a run.
type EntityID uint64

// InvalidEntityID is never handed out by an IDSource.
const InvalidEntityID EntityID = 0

func (id EntityID) String() string {
	return "e" + strconv.FormatUint(uint64(id), 10)
}

// IDSource hands out monotonically increasing entity IDs starting at 1.
type IDSource struct {
	next atomic.Uint64
}

// NewIDSource creates a source whose first ID is 1.
func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns a fresh ID.
func (s *IDSource) Next() EntityID {
	return EntityID(s.next.Add(1))
}

// Issued reports how many IDs have been handed out.
func (s *IDSource) Issued() uint64 {
	return s.next.Load()
}
