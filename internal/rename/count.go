package rename

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// CountEntries returns how many files and directories a run over root would
// scan. Unreadable subdirectories are skipped; an unreadable root is an error.
func CountEntries(fs afero.Fs, root string, recursive bool) (int, error) {
	files, dirs, err := readDir(fs, root)
	if err != nil {
		return 0, err
	}

	n := len(files) + len(dirs)
	if !recursive {
		return n, nil
	}
	for _, d := range dirs {
		sub, err := CountEntries(fs, filepath.Join(root, d), true)
		if err != nil {
			continue
		}
		n += sub
	}
	return n, nil
}
