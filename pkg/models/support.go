package models

import (
	"os"
	"strings"
)

// Support is a single optional capability a provider may declare.
type Support uint16

const (
	SupportMonitor Support = 1 << iota
	SupportTrash
	SupportSymbolicLink
	SupportHardLink
	SupportReserveSize
	SupportSetOwner
	SupportSetAccess
	SupportSetTimestamp
	SupportSystemSize
)

var supportNames = []struct {
	flag Support
	name string
}{
	{SupportMonitor, "monitor"},
	{SupportTrash, "trash"},
	{SupportSymbolicLink, "symbolic_link"},
	{SupportHardLink, "hard_link"},
	{SupportReserveSize, "reserve_size"},
	{SupportSetOwner, "set_owner"},
	{SupportSetAccess, "set_access"},
	{SupportSetTimestamp, "set_timestamp"},
	{SupportSystemSize, "system_size"},
}

func (s Support) String() string {
	for _, entry := range supportNames {
		if entry.flag == s {
			return entry.name
		}
	}
	return "unknown"
}

// SupportSet is the set of capabilities a provider declares. The empty set
// is valid.
type SupportSet uint16

// NewSupportSet builds a set from individual flags.
func NewSupportSet(flags ...Support) SupportSet {
	var set SupportSet
	for _, flag := range flags {
		set = set.Add(flag)
	}
	return set
}

// Has reports whether flag is declared.
func (s SupportSet) Has(flag Support) bool {
	return uint16(s)&uint16(flag) != 0
}

// Add returns a copy of the set with flag declared.
func (s SupportSet) Add(flag Support) SupportSet {
	return SupportSet(uint16(s) | uint16(flag))
}

// Remove returns a copy of the set without flag.
func (s SupportSet) Remove(flag Support) SupportSet {
	return SupportSet(uint16(s) &^ uint16(flag))
}

// List returns the declared flags in declaration order.
func (s SupportSet) List() []Support {
	var flags []Support
	for _, entry := range supportNames {
		if s.Has(entry.flag) {
			flags = append(flags, entry.flag)
		}
	}
	return flags
}

// Names returns the declared flag names, for JSON and display.
func (s SupportSet) Names() []string {
	names := []string{}
	for _, flag := range s.List() {
		names = append(names, flag.String())
	}
	return names
}

func (s SupportSet) String() string {
	return strings.Join(s.Names(), ",")
}

// OpenMode selects how GetFileHandle opens a file.
type OpenMode int

const (
	OpenRead OpenMode = iota
	OpenWrite
	OpenAppend
	OpenReadAppend
)

// Flags returns the os.OpenFile flags for the mode.
func (m OpenMode) Flags() int {
	switch m {
	case OpenWrite:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case OpenAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case OpenReadAppend:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND
	default:
		return os.O_RDONLY
	}
}

// Writable reports whether the mode allows writes.
func (m OpenMode) Writable() bool {
	return m != OpenRead
}

func (m OpenMode) String() string {
	switch m {
	case OpenWrite:
		return "write"
	case OpenAppend:
		return "append"
	case OpenReadAppend:
		return "read_append"
	default:
		return "read"
	}
}
