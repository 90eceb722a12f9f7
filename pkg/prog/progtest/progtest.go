// Package progtest provides utilities for testing subprograms.
//
// The entry point for this package is Test, which runs a Program against test
// cases describing the command line and the expected output and exit code:
//
//	Test(t, someProgram,
//	    ThatLauncher("-flag").WritesStdout("out"),
//	    ThatLauncher("-bad-flag").ExitsWith(2))
package progtest

import (
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/flowerornament/zed-supercollider/pkg/must"
	"github.com/flowerornament/zed-supercollider/pkg/prog"
)

// Case is a test case that can be used in Test.
type Case struct {
	args  []string
	stdin string
	want  result
}

type result struct {
	exit   int
	stdout output
	stderr output
}

type output struct {
	content string
	partial bool
}

// ThatLauncher returns a new Case with the given command-line arguments.
func ThatLauncher(args ...string) Case {
	return Case{args: append([]string{"sc-launcher"}, args...)}
}

// WithStdin returns an altered Case that has the given stdin.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// DoesNothing returns c itself. It is useful to mark tests that otherwise have
// no expectations, for example:
//
//	ThatLauncher("-some-flag").DoesNothing()
func (c Case) DoesNothing() Case {
	return c
}

// ExitsWith returns an altered Case that requires the case to exit with the
// given exit code.
func (c Case) ExitsWith(code int) Case {
	c.want.exit = code
	return c
}

// WritesStdout returns an altered Case that requires the case to write exactly
// the given text to stdout.
func (c Case) WritesStdout(s string) Case {
	c.want.stdout = output{content: s}
	return c
}

// WritesStdoutContaining returns an altered Case that requires the case to
// write output to stdout containing the given text.
func (c Case) WritesStdoutContaining(s string) Case {
	c.want.stdout = output{content: s, partial: true}
	return c
}

// WritesStderr returns an altered Case that requires the case to write exactly
// the given text to stderr.
func (c Case) WritesStderr(s string) Case {
	c.want.stderr = output{content: s}
	return c
}

// WritesStderrContaining returns an altered Case that requires the case to
// write output to stderr containing the given text.
func (c Case) WritesStderrContaining(s string) Case {
	c.want.stderr = output{content: s, partial: true}
	return c
}

// Test runs test cases against a given program.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args[1:], " "), func(t *testing.T) {
			t.Helper()
			r := run(p, c.args, c.stdin)
			if r.exit != c.want.exit {
				t.Errorf("got exit code %v, want %v", r.exit, c.want.exit)
			}
			checkOutput(t, "stdout", r.stdout.content, c.want.stdout)
			checkOutput(t, "stderr", r.stderr.content, c.want.stderr)
		})
	}
}

func checkOutput(t *testing.T, name, got string, want output) {
	t.Helper()
	if want.partial {
		if !strings.Contains(got, want.content) {
			t.Errorf("got %v %q, want string containing %q", name, got, want.content)
		}
	} else if got != want.content {
		t.Errorf("got %v %q, want %q", name, got, want.content)
	}
}

func run(p prog.Program, args []string, stdin string) result {
	r0, w0 := must.Pipe()
	r1, w1 := must.Pipe()
	r2, w2 := must.Pipe()

	go func() {
		io.WriteString(w0, stdin)
		w0.Close()
	}()
	stdout := capture(r1)
	stderr := capture(r2)

	exit := prog.Run([3]*os.File{r0, w1, w2}, args, p)
	r0.Close()
	w1.Close()
	w2.Close()
	return result{exit, output{content: <-stdout}, output{content: <-stderr}}
}

// Reads from the file in a goroutine, so that the write end of the pipe does
// not fill up and block the program under test.
func capture(r *os.File) <-chan string {
	ch := make(chan string, 1)
	var once sync.Once
	go func() {
		defer once.Do(func() { r.Close() })
		ch <- string(must.OK1(io.ReadAll(r)))
	}()
	return ch
}
