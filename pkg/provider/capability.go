package provider

import (
	"errors"
	"time"

	"sunflower/pkg/models"
)

// ModeSetter changes permission bits. Declared with models.SupportSetAccess.
type ModeSetter interface {
	SetMode(path string, mode uint32, relativeTo string) error
}

// OwnerSetter changes ownership. Declared with models.SupportSetOwner.
type OwnerSetter interface {
	SetOwner(path string, uid, gid int, relativeTo string) error
}

// TimestampSetter changes access and modification times. Declared with
// models.SupportSetTimestamp. The change time cannot be set directly and is
// updated by the system as a side effect.
type TimestampSetter interface {
	SetTimestamp(path string, access, modify time.Time, relativeTo string) error
}

// Trasher moves paths to the trash. Declared with models.SupportTrash.
type Trasher interface {
	TrashPath(path, relativeTo string) error
}

// Linker creates links. Declared with models.SupportSymbolicLink and
// models.SupportHardLink.
type Linker interface {
	Link(target, name string, symbolic bool, relativeTo string) error
}

// ArchiveBinder is implemented by providers that present an archive file.
type ArchiveBinder interface {
	OpenArchive(path string) error
	ReleaseArchiveHandle() error
}

func require(p Provider, op string, flag models.Support) error {
	if !p.GetSupport().Has(flag) {
		return Unsupported(op, p.Protocol())
	}
	return nil
}

// SetMode changes permission bits if p declares and implements it.
func SetMode(p Provider, path string, mode uint32, relativeTo string) error {
	if err := require(p, "set_mode", models.SupportSetAccess); err != nil {
		return err
	}
	setter, ok := p.(ModeSetter)
	if !ok {
		return Unsupported("set_mode", p.Protocol())
	}
	return setter.SetMode(path, mode, relativeTo)
}

// SetOwner changes ownership if p declares and implements it.
func SetOwner(p Provider, path string, uid, gid int, relativeTo string) error {
	if err := require(p, "set_owner", models.SupportSetOwner); err != nil {
		return err
	}
	setter, ok := p.(OwnerSetter)
	if !ok {
		return Unsupported("set_owner", p.Protocol())
	}
	return setter.SetOwner(path, uid, gid, relativeTo)
}

// SetTimestamp changes timestamps if p declares and implements it.
func SetTimestamp(p Provider, path string, access, modify time.Time, relativeTo string) error {
	if err := require(p, "set_timestamp", models.SupportSetTimestamp); err != nil {
		return err
	}
	setter, ok := p.(TimestampSetter)
	if !ok {
		return Unsupported("set_timestamp", p.Protocol())
	}
	return setter.SetTimestamp(path, access, modify, relativeTo)
}

// TrashPath moves path to the trash. Every failure, including an
// unsupported provider, is reported as *TrashError.
func TrashPath(p Provider, path, relativeTo string) error {
	if err := require(p, "trash_path", models.SupportTrash); err != nil {
		return &TrashError{Path: path, Err: err}
	}
	trasher, ok := p.(Trasher)
	if !ok {
		return &TrashError{Path: path, Err: Unsupported("trash_path", p.Protocol())}
	}

	err := trasher.TrashPath(path, relativeTo)
	if err == nil {
		return nil
	}
	var trashErr *TrashError
	if errors.As(err, &trashErr) {
		return err
	}
	return &TrashError{Path: path, Err: err}
}

// Link creates a symbolic or hard link named name pointing at target.
func Link(p Provider, target, name string, symbolic bool, relativeTo string) error {
	flag := models.SupportHardLink
	if symbolic {
		flag = models.SupportSymbolicLink
	}
	if err := require(p, "link", flag); err != nil {
		return err
	}
	linker, ok := p.(Linker)
	if !ok {
		return Unsupported("link", p.Protocol())
	}
	return linker.Link(target, name, symbolic, relativeTo)
}
