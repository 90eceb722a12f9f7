package launcher

import (
	"os"
	"path/filepath"
)

// workDir returns the directory holding the lock file, pid file and post log.
// SC_TMP_DIR takes precedence so tests and packagings can redirect it; the
// default is the system temporary directory, where stale files are eventually
// cleared by the OS.
func workDir() string {
	if dir := os.Getenv(envTmpDir); dir != "" {
		return dir
	}
	return os.TempDir()
}

func lockFilePath() string { return filepath.Join(workDir(), "sc_launcher.lock") }
func pidFilePath() string  { return filepath.Join(workDir(), "sc_launcher.pid") }
func postLogPath() string  { return filepath.Join(workDir(), "sclang_post.log") }

// postLogEnabled reports whether sclang's post window output should be copied
// to a log file. On by default; SC_LAUNCHER_POST_LOG=0 turns it off.
func postLogEnabled() bool {
	return os.Getenv(envPostLog) != "0"
}
