package models

// SystemSize is a volume capacity snapshot. The zero value means unknown or
// unsupported and is not an error.
type SystemSize struct {
	BlockSize      uint64 `json:"block_size"`
	BlockTotal     uint64 `json:"block_total"`
	BlockAvailable uint64 `json:"block_available"`
	SizeTotal      uint64 `json:"size_total"`
	SizeAvailable  uint64 `json:"size_available"`
}

// IsZero reports whether the snapshot is the unknown sentinel.
func (s SystemSize) IsZero() bool {
	return s == SystemSize{}
}

// SizeUsed returns the number of bytes in use.
func (s SystemSize) SizeUsed() uint64 {
	if s.SizeAvailable > s.SizeTotal {
		return 0
	}
	return s.SizeTotal - s.SizeAvailable
}
