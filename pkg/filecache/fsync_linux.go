//go:build linux

package filecache

import (
	"os"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// datasync uses fdatasync for OS files; file metadata other than size is
// not flushed.
func datasync(f afero.File) error {
	if osf, ok := f.(*os.File); ok {
		return unix.Fdatasync(int(osf.Fd()))
	}
	return f.Sync()
}
