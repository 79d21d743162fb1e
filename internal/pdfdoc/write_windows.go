//go:build windows

package pdfdoc

import (
	"bytes"

	"github.com/natefinch/atomic"
)

// writeAtomic replaces path with data via a temp file in the same
// directory. renameio has no Windows support.
func writeAtomic(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}
