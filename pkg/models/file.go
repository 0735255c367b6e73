package models

import "os"

// FileType classifies a filesystem entry.
type FileType int

const (
	// FileTypeInvalid is returned whenever a stat call fails. Callers must check
	// for it before trusting any other field.
	FileTypeInvalid FileType = iota
	FileTypeRegular
	FileTypeDirectory
	FileTypeLink
	FileTypeSocket
	FileTypeDeviceCharacter
	FileTypeDeviceBlock
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeLink:
		return "link"
	case FileTypeSocket:
		return "socket"
	case FileTypeDeviceCharacter:
		return "device_character"
	case FileTypeDeviceBlock:
		return "device_block"
	default:
		return "invalid"
	}
}

// FileTypeFromMode maps Go file mode type bits onto a FileType. Named pipes
// and other exotic entries have no dedicated type and report as regular.
func FileTypeFromMode(mode os.FileMode) FileType {
	switch {
	case mode&os.ModeSymlink != 0:
		return FileTypeLink
	case mode.IsDir():
		return FileTypeDirectory
	case mode&os.ModeSocket != 0:
		return FileTypeSocket
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice != 0:
		return FileTypeDeviceCharacter
	case mode&os.ModeDevice != 0:
		return FileTypeDeviceBlock
	default:
		return FileTypeRegular
	}
}

// Stat is implemented by FileInfo and FileInfoExtended so a single stat call
// can return either form.
type Stat interface {
	Base() FileInfo
}

// FileInfo is the compact stat record. Values are built fresh on every query.
type FileInfo struct {
	Size       uint64   `json:"size"`
	Mode       uint32   `json:"mode"`
	UserID     uint32   `json:"user_id"`
	GroupID    uint32   `json:"group_id"`
	TimeModify uint64   `json:"time_modify"`
	Type       FileType `json:"type"`
}

// Base returns the record itself.
func (i FileInfo) Base() FileInfo {
	return i
}

// IsValid reports whether the stat call that produced the record succeeded.
func (i FileInfo) IsValid() bool {
	return i.Type != FileTypeInvalid
}

// Permissions returns the permission bits without setuid, setgid or sticky.
func (i FileInfo) Permissions() uint32 {
	return i.Mode & 0o777
}

// FileInfoExtended adds filesystem identity fields used for hard-link
// detection and change-time display.
type FileInfoExtended struct {
	FileInfo
	IMode      uint32 `json:"i_mode"`
	TimeAccess uint64 `json:"time_access"`
	TimeChange uint64 `json:"time_change"`
	Device     uint64 `json:"device"`
	Inode      uint64 `json:"inode"`
}

// Base returns the embedded compact record.
func (i FileInfoExtended) Base() FileInfo {
	return i.FileInfo
}

// InvalidStat returns the zero-valued sentinel in the requested form.
func InvalidStat(extended bool) Stat {
	if extended {
		return FileInfoExtended{}
	}
	return FileInfo{}
}
