package cleanup

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"github.com/chmdznr/bulk-renamer/internal/logging"
)

// Swappable for tests.
var (
	goos        = runtime.GOOS
	execCommand = exec.Command
)

// MacMetadata removes AppleDouble "._" companion files below dir with
// dot_clean so they are not renamed alongside the real files. It only acts
// on macOS; failures are logged as warnings and never stop the caller.
func MacMetadata(dir string, dryRun bool, log *logging.Logger) {
	if goos != "darwin" {
		return
	}
	if log == nil {
		log = logging.Discard()
	}

	if dryRun {
		log.Info("[cleanup] (dry-run) would remove macOS ._ files with dot_clean in %s", dir)
		return
	}

	log.Info("[cleanup] removing macOS ._ files in %s", dir)
	out, err := execCommand("dot_clean", "-m", dir).CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			log.Warn("[cleanup] dot_clean not found, skipping")
			return
		}
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			log.Warn("[cleanup] dot_clean failed (%v): %s; continuing", err, msg)
		} else {
			log.Warn("[cleanup] dot_clean failed (%v); continuing", err)
		}
		return
	}
	log.Success("[cleanup] done")
}
