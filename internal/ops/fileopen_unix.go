//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/parley/internal/errors"
)

// openNoFollow opens an export file without following a symlink in its final
// component. pathPolicy keeps every other component fixed.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	switch {
	case err == nil:
		return os.NewFile(uintptr(fd), path), nil
	case stderrors.Is(err, syscall.ELOOP):
		return nil, errors.NewInvalidRequest("export file must not be a symlink")
	case stderrors.Is(err, syscall.ENOENT) && flag&os.O_CREATE == 0:
		return nil, errors.NewFileNotFound(path)
	case stderrors.Is(err, syscall.EEXIST):
		return nil, errors.NewConflict("export file already exists: " + path)
	}
	return nil, errors.NewInternal(&os.PathError{Op: "open", Path: path, Err: err})
}
