package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BinaryEnvVar names the environment variable holding the CLI binary path.
const BinaryEnvVar = "SEGENERGY_BIN"

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	BinaryPath string
	TempDir    string
	EnvVars    []string

	// Test artifacts
	CreatedFiles []string
}

// NewTestContext creates a new test context with a private working directory.
func NewTestContext() (*TestContext, error) {
	binary := os.Getenv(BinaryEnvVar)
	if binary == "" {
		binary = "segenergy"
	}

	tempDir, err := os.MkdirTemp("", "segenergy-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		BinaryPath: binary,
		TempDir:    tempDir,
		// Keep user and system config files out of the scenarios.
		EnvVars: []string{"HOME=" + tempDir, "XDG_CONFIG_HOME=" + tempDir},
	}
	return ctx, nil
}

// Cleanup removes all temporary files and directories created during tests.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	for _, file := range testCtx.CreatedFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove file %s: %w", file, err))
		}
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// Path resolves a scenario-relative file name inside the temp directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// TrackFile adds a file to be cleaned up after tests.
func (testCtx *TestContext) TrackFile(filename string) {
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, testCtx.Path(filename))
}
