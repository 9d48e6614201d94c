package cleanup

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/chmdznr/bulk-renamer/internal/logging"
)

// TestHelperProcess is not a real test; it stands in for dot_clean.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprint(os.Stderr, os.Getenv("HELPER_OUTPUT"))
	if os.Getenv("HELPER_FAIL") == "1" {
		os.Exit(1)
	}
	os.Exit(0)
}

type call struct {
	name string
	args []string
}

func fakeCommand(calls *[]call, fail bool, output string) func(string, ...string) *exec.Cmd {
	return func(name string, args ...string) *exec.Cmd {
		*calls = append(*calls, call{name: name, args: args})
		cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_OUTPUT="+output)
		if fail {
			cmd.Env = append(cmd.Env, "HELPER_FAIL=1")
		}
		return cmd
	}
}

func withPlatform(t *testing.T, platform string, cmd func(string, ...string) *exec.Cmd) {
	t.Helper()
	oldOS, oldCmd := goos, execCommand
	goos, execCommand = platform, cmd
	t.Cleanup(func() { goos, execCommand = oldOS, oldCmd })
}

func newLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	l, err := logging.New(logging.Options{Out: &out, Err: &out, Color: logging.ColorNever})
	if err != nil {
		t.Fatal(err)
	}
	return l, &out
}

func TestMacMetadata(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		dryRun    bool
		fail      bool
		output    string
		wantCalls int
		wantLog   string
	}{
		{name: "other platforms do nothing", goos: "linux", wantCalls: 0},
		{name: "dry run only announces", goos: "darwin", dryRun: true, wantCalls: 0, wantLog: "(dry-run) would remove"},
		{name: "success", goos: "darwin", wantCalls: 1, wantLog: "[SUCCESS] [cleanup] done"},
		{name: "failure is a warning", goos: "darwin", fail: true, output: "permission denied", wantCalls: 1, wantLog: "[WARN] [cleanup] dot_clean failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []call
			withPlatform(t, tt.goos, fakeCommand(&calls, tt.fail, tt.output))
			log, out := newLogger(t)

			MacMetadata("/data/in", tt.dryRun, log)

			if len(calls) != tt.wantCalls {
				t.Fatalf("got %d dot_clean calls; want %d", len(calls), tt.wantCalls)
			}
			if tt.wantCalls == 1 {
				c := calls[0]
				if c.name != "dot_clean" || strings.Join(c.args, " ") != "-m /data/in" {
					t.Errorf("call = %s %q; want dot_clean -m /data/in", c.name, c.args)
				}
			}
			if tt.wantLog == "" && out.Len() != 0 {
				t.Errorf("expected no output, got %q", out.String())
			}
			if tt.wantLog != "" && !strings.Contains(out.String(), tt.wantLog) {
				t.Errorf("log missing %q in %q", tt.wantLog, out.String())
			}
			if tt.output != "" && !strings.Contains(out.String(), tt.output) {
				t.Errorf("log should carry the tool output, got %q", out.String())
			}
		})
	}
}

func TestMacMetadataMissingTool(t *testing.T) {
	withPlatform(t, "darwin", func(string, ...string) *exec.Cmd {
		return exec.Command("bulkrename-no-such-dot-clean")
	})
	log, out := newLogger(t)

	MacMetadata("/data/in", false, log)

	if !strings.Contains(out.String(), "dot_clean not found") {
		t.Errorf("expected a not-found warning, got %q", out.String())
	}
}

func TestMacMetadataNilLogger(t *testing.T) {
	var calls []call
	withPlatform(t, "darwin", fakeCommand(&calls, false, ""))
	MacMetadata("/data/in", false, nil)
	if len(calls) != 1 {
		t.Errorf("got %d calls; want 1", len(calls))
	}
}
