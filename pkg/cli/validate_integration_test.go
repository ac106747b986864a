//go:build integration

package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
)

// integrationTestSetup holds the setup state for integration tests
type integrationTestSetup struct {
	tempDir    string
	binaryPath string
}

// setupIntegrationTest builds the pipelint binary into a temporary directory
func setupIntegrationTest(t *testing.T) *integrationTestSetup {
	t.Helper()

	tempDir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current working directory: %v", err)
	}

	binaryPath := filepath.Join(tempDir, "pipelint")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/pipelint")
	buildCmd.Dir = filepath.Join(wd, "..", "..")
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build pipelint binary: %v", err)
	}

	return &integrationTestSetup{tempDir: tempDir, binaryPath: binaryPath}
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 0
}

func TestValidateIntegration(t *testing.T) {
	setup := setupIntegrationTest(t)

	valid := writeFile(t, setup.tempDir, "pipelines/valid.yml", validPipeline)
	cmd := exec.Command(setup.binaryPath, "validate", valid)
	cmd.Dir = setup.tempDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("validate failed on a valid file: %v\nOutput: %s", err, string(output))
	}
	if !strings.Contains(string(output), "No problems found") {
		t.Errorf("unexpected output:\n%s", string(output))
	}

	writeFile(t, setup.tempDir, "pipelines/invalid.yml", invalidPipeline)
	cmd = exec.Command(setup.binaryPath, "validate", "pipelines", "--format", "json")
	cmd.Dir = setup.tempDir
	output, err = cmd.Output()
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit status 1, got %d (%v)\nOutput: %s", code, err, string(output))
	}
	if !strings.Contains(string(output), `"severity": "error"`) {
		t.Errorf("expected a JSON error diagnostic:\n%s", string(output))
	}
	if strings.Contains(string(output), "\x1b[") {
		t.Errorf("JSON output must not contain color escape sequences")
	}
}

func TestValidateUnderPty(t *testing.T) {
	setup := setupIntegrationTest(t)
	invalid := writeFile(t, setup.tempDir, "invalid.yml", invalidPipeline)

	cmd := exec.Command(setup.binaryPath, "validate", invalid)
	cmd.Dir = setup.tempDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	// Start the command with a TTY attached to stdin/stdout/stderr
	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start PTY: %v", err)
	}
	defer func() { _ = ptmx.Close() }()

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, ptmx)
		close(done)
	}()

	err = cmd.Wait()
	select {
	case <-done:
	case <-time.After(750 * time.Millisecond):
	}

	output := buf.String()
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit status 1, got %d (%v)\nOutput:\n%s", code, err, output)
	}
	if !strings.Contains(output, "\x1b[") {
		t.Errorf("terminal output should be styled:\n%q", output)
	}
	if !strings.Contains(output, "invalid.yml:2:") {
		t.Errorf("expected a location on line 2:\n%s", output)
	}
}
