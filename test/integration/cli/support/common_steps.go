package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/cucumber/godog"
)

// theSegenergyBinaryIsAvailable verifies the CLI binary can be executed.
func (testCtx *TestContext) theSegenergyBinaryIsAvailable() error {
	if _, err := exec.LookPath(testCtx.BinaryPath); err != nil {
		return fmt.Errorf("segenergy binary not found at %s: %w", testCtx.BinaryPath, err)
	}
	return nil
}

// iRunCommand executes a command inside the scenario directory. A leading
// "segenergy" resolves to the binary under test.
func (testCtx *TestContext) iRunCommand(command string) error {
	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "segenergy" {
		parts[0] = testCtx.BinaryPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	output, err := cmd.CombinedOutput()
	testCtx.LastOutput = string(output)
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theFileShouldExist verifies a file exists in the scenario directory.
func (testCtx *TestContext) theFileShouldExist(filename string) error {
	if _, err := os.Stat(testCtx.Path(filename)); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", testCtx.Path(filename))
	}
	return nil
}

// theFileShouldNotExist verifies a file was not written.
func (testCtx *TestContext) theFileShouldNotExist(filename string) error {
	if _, err := os.Stat(testCtx.Path(filename)); err == nil {
		return fmt.Errorf("file exists but should not: %s", testCtx.Path(filename))
	}
	return nil
}

// theFileShouldContain verifies a file contains specific content.
func (testCtx *TestContext) theFileShouldContain(filename, expectedContent string) error {
	content, err := os.ReadFile(testCtx.Path(filename))
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if !strings.Contains(string(content), expectedContent) {
		return fmt.Errorf("file %s does not contain '%s'\nActual content: %s",
			filename, expectedContent, string(content))
	}
	return nil
}

// theManifestShouldListEntries checks the entry count of a manifest.
func (testCtx *TestContext) theManifestShouldListEntries(filename string, n int) error {
	m, err := volio.ReadManifest(testCtx.Path(filename))
	if err != nil {
		return err
	}
	if len(m.Entries) != n {
		return fmt.Errorf("manifest %s lists %d entries, want %d", filename, len(m.Entries), n)
	}
	return nil
}

// theManifestShouldRecordFailures checks the failure count of a manifest.
func (testCtx *TestContext) theManifestShouldRecordFailures(filename string, n int) error {
	m, err := volio.ReadManifest(testCtx.Path(filename))
	if err != nil {
		return err
	}
	if len(m.Failures) != n {
		return fmt.Errorf("manifest %s records %d failures, want %d: %v", filename, len(m.Failures), n, m.Failures)
	}
	return nil
}

// theErrorShouldMention verifies the command output mentions errorText.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastExitCode == 0 {
		return errors.New("expected command to fail but it succeeded")
	}
	if !strings.Contains(strings.ToLower(testCtx.LastOutput), strings.ToLower(errorText)) {
		return fmt.Errorf("error output does not mention '%s'\nActual output: %s", errorText, testCtx.LastOutput)
	}
	return nil
}

// RegisterCommonSteps registers all common step definitions.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the segenergy binary is available$`, testCtx.theSegenergyBinaryIsAvailable)
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the manifest "([^"]*)" should list (\d+) entr(?:y|ies)$`, testCtx.theManifestShouldListEntries)
	sc.Step(`^the manifest "([^"]*)" should record (\d+) failures?$`, testCtx.theManifestShouldRecordFailures)
}
