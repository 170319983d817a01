// Package filebus implements spec.md §4.6's file adapter: mode-bitmap
// open, whence-based seek, and shell-style glob matching, over the
// standard os package (these are plain POSIX file operations with no
// ecosystem-specific wire format, unlike the kernel ABIs the other bus
// packages bind).
package filebus

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
)

// Mode is the bitmap from spec.md §4.6.
type Mode uint32

const (
	ModeRead Mode = 1 << iota
	ModeWrite
	ModeAppend
	ModeCreate
	ModeTrunc
)

func (m Mode) osFlags() (int, error) {
	var flags int
	switch {
	case m&ModeRead != 0 && m&ModeWrite != 0:
		flags = os.O_RDWR
	case m&ModeWrite != 0:
		flags = os.O_WRONLY
	case m&ModeRead != 0:
		flags = os.O_RDONLY
	default:
		return 0, gpioerr.BadFileMode
	}
	if m&ModeAppend != 0 {
		flags |= os.O_APPEND
	}
	if m&ModeCreate != 0 {
		flags |= os.O_CREATE
	}
	if m&ModeTrunc != 0 {
		flags |= os.O_TRUNC
	}
	return flags, nil
}

// Whence mirrors spec.md §4.6's START/CURRENT/END.
type Whence uint8

const (
	WhenceStart Whence = iota
	WhenceCurrent
	WhenceEnd
)

func (w Whence) osWhence() (int, error) {
	switch w {
	case WhenceStart:
		return os.SEEK_SET, nil
	case WhenceCurrent:
		return os.SEEK_CUR, nil
	case WhenceEnd:
		return os.SEEK_END, nil
	default:
		return 0, gpioerr.BadFileSeek
	}
}

// File is one opened regular file handle.
type File struct {
	f *os.File
}

func Open(path string, mode Mode) (*File, error) {
	flags, err := mode.osFlags()
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return nil, gpioerr.Wrap("file_open", gpioerr.NoFileAccess, err)
		}
		return nil, gpioerr.Wrap("file_open", gpioerr.FileOpenFailed, err)
	}
	return &File{f: f}, nil
}

func (f *File) Close() error { return f.f.Close() }

func (f *File) Read(b []byte) (int, error) {
	n, err := f.f.Read(b)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, gpioerr.Wrap("file_read", gpioerr.FileOpenFailed, err)
	}
	return n, err
}

func (f *File) Write(b []byte) (int, error) {
	n, err := f.f.Write(b)
	if err != nil {
		return n, gpioerr.Wrap("file_write", gpioerr.FileOpenFailed, err)
	}
	return n, nil
}

func (f *File) Seek(offset int64, whence Whence) (int64, error) {
	w, err := whence.osWhence()
	if err != nil {
		return 0, err
	}
	return f.f.Seek(offset, w)
}

// Glob implements spec.md §4.6's "standard shell-style patterns".
func Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, gpioerr.BadFileParam
	}
	if len(matches) == 0 {
		return nil, gpioerr.NoFileMatch
	}
	return matches, nil
}
