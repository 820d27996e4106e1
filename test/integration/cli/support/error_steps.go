package support

import (
	"github.com/cucumber/godog"
)

// theErrorShouldMentionInvalidOption verifies a rejected option value.
func (testCtx *TestContext) theErrorShouldMentionInvalidOption(option string) error {
	return testCtx.theErrorShouldMention("invalid " + option)
}

// theErrorShouldMentionMissingFile verifies a missing input was reported.
func (testCtx *TestContext) theErrorShouldMentionMissingFile() error {
	return testCtx.theErrorShouldMention("no such file")
}

// theErrorShouldMentionFailedInputs verifies the failed-input summary.
func (testCtx *TestContext) theErrorShouldMentionFailedInputs() error {
	return testCtx.theErrorShouldMention("input(s) failed")
}

// theErrorShouldMentionUnknownFlag verifies cobra rejected a flag.
func (testCtx *TestContext) theErrorShouldMentionUnknownFlag() error {
	return testCtx.theErrorShouldMention("unknown flag")
}

// RegisterErrorSteps registers error handling step definitions.
func (testCtx *TestContext) RegisterErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the error should mention an invalid (\w+(?: \w+)?)$`, testCtx.theErrorShouldMentionInvalidOption)
	sc.Step(`^the error should mention the missing file$`, testCtx.theErrorShouldMentionMissingFile)
	sc.Step(`^the error should report failed inputs$`, testCtx.theErrorShouldMentionFailedInputs)
	sc.Step(`^the error should mention an unknown flag$`, testCtx.theErrorShouldMentionUnknownFlag)
}
