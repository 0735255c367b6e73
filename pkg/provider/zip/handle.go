package zip

import (
	"bytes"
	"io"
	"os"

	"sunflower/pkg/provider"

	"github.com/klauspost/compress/zip"
)

// Entries up to this size are decompressed into memory; larger ones are
// spooled to a temporary file so the handle can seek.
const memoryLimit = 32 << 20

type memoryHandle struct {
	*bytes.Reader
}

func (memoryHandle) Write([]byte) (int, error) { return 0, provider.ErrUnsupported }
func (memoryHandle) Close() error              { return nil }

type spoolHandle struct {
	*os.File
}

func (spoolHandle) Write([]byte) (int, error) { return 0, provider.ErrUnsupported }

func (h spoolHandle) Close() error {
	name := h.Name()
	err := h.File.Close()
	if removeErr := os.Remove(name); err == nil {
		err = removeErr
	}
	return err
}

func openEntry(f *zip.File) (provider.Handle, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if f.UncompressedSize64 <= memoryLimit {
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		return memoryHandle{Reader: bytes.NewReader(data)}, nil
	}

	tmp, err := os.CreateTemp("", "sunflower-zip-*")
	if err != nil {
		return nil, err
	}
	handle := spoolHandle{File: tmp}
	if _, err := io.Copy(tmp, rc); err != nil {
		handle.Close()
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		handle.Close()
		return nil, err
	}
	return handle, nil
}
