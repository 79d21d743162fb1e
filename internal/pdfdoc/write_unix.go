//go:build !windows

package pdfdoc

import (
	"path/filepath"

	"github.com/google/renameio/v2"
)

// writeAtomic replaces path with data via a temp file in the same
// directory. An existing file keeps its permissions; a new one gets 0644
// minus the umask.
func writeAtomic(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0o644,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithExistingPermissions(),
	)
}
