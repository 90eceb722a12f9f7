package launcher

import "time"

// Marker the LanguageServer quark prints on stdout once it accepts traffic.
// It reappears after every class library recompile.
const readyMarker = "*** LSP READY ***"

const (
	// How long to wait for the ready marker before unblocking the message
	// queue anyway. Cold class library compiles can take a while.
	readyMaxWait = 60 * time.Second

	startupPollInterval  = 50 * time.Millisecond
	mainPollInterval     = 50 * time.Millisecond
	shutdownPollInterval = 100 * time.Millisecond

	// Window for sclang to exit on its own after the LSP shutdown/exit
	// pair, before signals are used.
	gracefulExitTimeout = 5 * time.Second
	// Grace after SIGTERM before falling back to SIGKILL.
	sigtermGrace = 2 * time.Second

	// The LSP shutdown and exit messages are fired several times; UDP
	// gives no delivery confirmation.
	shutdownSendAttempts = 3
	shutdownSendInterval = 100 * time.Millisecond
)

// Environment read by the LanguageServer quark inside sclang.
const (
	envLSPEnable     = "SCLANG_LSP_ENABLE"
	envLSPClientPort = "SCLANG_LSP_CLIENTPORT"
	envLSPServerPort = "SCLANG_LSP_SERVERPORT"
	envLSPLogLevel   = "SCLANG_LSP_LOGLEVEL"
)

// Environment read by the launcher itself.
const (
	envSclangPath = "SCLANG_PATH"
	envTmpDir     = "SC_TMP_DIR"
	envPostLog    = "SC_LAUNCHER_POST_LOG"
)
