//go:build windows

package ops

import (
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/hpungsan/parley/internal/errors"
)

// openNoFollow opens an export file. Windows has no O_NOFOLLOW; pathPolicy
// has already refused a symlinked file.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	switch {
	case err == nil:
		return f, nil
	case stderrors.Is(err, fs.ErrNotExist) && flag&os.O_CREATE == 0:
		return nil, errors.NewFileNotFound(path)
	case stderrors.Is(err, fs.ErrExist):
		return nil, errors.NewConflict("export file already exists: " + path)
	}
	return nil, errors.NewInternal(err)
}
