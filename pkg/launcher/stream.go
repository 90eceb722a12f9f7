package launcher

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// watchChildStream consumes one of sclang's output streams line by line and
// returns a channel closed when the stream ends. Post window content goes to
// the post log with LSP wire noise filtered out; when stderr is a terminal
// the lines are echoed there as well, which makes `sc-launcher -lsp` usable
// interactively. onLine, when non-nil, sees every line and is where the
// stdout watcher detects the ready marker.
func watchChildStream(label string, r io.Reader, onLine func(string)) <-chan struct{} {
	done := make(chan struct{})
	echo := isatty.IsTerminal(os.Stderr.Fd())

	var post *os.File
	if postLogEnabled() {
		f, err := os.OpenFile(postLogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Println("opening post log:", err)
		} else {
			post = f
			if label == "sclang stdout" {
				logger.Println("sclang output ->", postLogPath())
			}
		}
	}

	go func() {
		defer close(done)
		if post != nil {
			defer post.Close()
		}
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimRight(sc.Text(), "\r\n")
			if line == "" {
				continue
			}
			if echo {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", label, line)
			} else {
				logger.Printf("[%s] %s", label, line)
			}
			if post != nil && !isWireNoise(line) {
				fmt.Fprintln(post, line)
			}
			if onLine != nil {
				onLine(line)
			}
		}
		if err := sc.Err(); err != nil {
			logger.Printf("reading %s: %v", label, err)
		}
	}()
	return done
}

// isWireNoise reports whether a line is LSP protocol traffic rather than post
// window content.
func isWireNoise(line string) bool {
	return strings.Contains(line, "[LANGUAGESERVER.QUARK]") ||
		strings.HasPrefix(line, `{"`) ||
		strings.HasPrefix(line, "Content-Length:")
}
