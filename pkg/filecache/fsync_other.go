//go:build !linux

package filecache

import "github.com/spf13/afero"

func datasync(f afero.File) error {
	return f.Sync()
}
