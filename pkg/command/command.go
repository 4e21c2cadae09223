package command

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Command is one remote operation together with its retry and success contract
type Command struct {
	Command              string             `yaml:"command"`
	IgnoreExitValueCheck bool               `yaml:"ignoreExitValueCheck,omitempty"`
	Retries              int                `yaml:"retries,omitempty"`
	RetryIntervalSeconds int                `yaml:"retryIntervalSeconds,omitempty"`
	TimeoutSeconds       int                `yaml:"timeoutSeconds,omitempty"`
	ExpectedOutputs      []string           `yaml:"expectedOutputs,omitempty"`
	KnownFailures        []KnownFailure     `yaml:"knownFailures,omitempty"`
	OutputExtractions    []OutputExtraction `yaml:"outputExtractions,omitempty"`
}

// KnownFailure maps a failure signature to an explanation.
// A fatal match ends the retry loop of the command.
type KnownFailure struct {
	Pattern     string `yaml:"pattern"`
	Explanation string `yaml:"explanation"`
	Fatal       bool   `yaml:"fatal,omitempty"`
}

// OutputExtraction captures a value from stdout under Name.
// The first capture group is used when the regex has one, the whole match otherwise.
type OutputExtraction struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// Outcome is the troubleshooting record of one attempt
type Outcome struct {
	Index       int
	Attempt     int
	Command     string
	ExitCode    int
	Stdout      string
	Stderr      string
	Succeeded   bool
	Explanation string
	Duration    time.Duration
}

// New returns a command with no retries and exit code checking enabled
func New(cmd string) Command {
	return Command{Command: cmd}
}

// WithRetries sets the retry budget and the interval between attempts
func (c Command) WithRetries(retries, intervalSeconds int) Command {
	c.Retries = retries
	c.RetryIntervalSeconds = intervalSeconds
	return c
}

// WithTimeout sets the per attempt timeout
func (c Command) WithTimeout(seconds int) Command {
	c.TimeoutSeconds = seconds
	return c
}

// IgnoringExitValue disables the exit code check and lets the list continue on failure
func (c Command) IgnoringExitValue() Command {
	c.IgnoreExitValueCheck = true
	return c
}

// Expecting appends expected outputs
func (c Command) Expecting(outputs ...string) Command {
	c.ExpectedOutputs = append(append([]string(nil), c.ExpectedOutputs...), outputs...)
	return c
}

// WithKnownFailures appends failure signatures
func (c Command) WithKnownFailures(failures ...KnownFailure) Command {
	c.KnownFailures = append(append([]KnownFailure(nil), c.KnownFailures...), failures...)
	return c
}

// Extracting appends an output extraction
func (c Command) Extracting(name, regex string) Command {
	c.OutputExtractions = append(append([]OutputExtraction(nil), c.OutputExtractions...), OutputExtraction{Name: name, Regex: regex})
	return c
}

// Validate checks the static contract of the command
func (c Command) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return cerrors.Specification{Reason: "command string is empty"}
	}
	if c.Retries < 0 || c.RetryIntervalSeconds < 0 || c.TimeoutSeconds < 0 {
		return cerrors.Specification{Target: c.Command, Reason: "retries, retryIntervalSeconds and timeoutSeconds must not be negative"}
	}
	for _, failure := range c.KnownFailures {
		if failure.Pattern == "" {
			return cerrors.Specification{Target: c.Command, Reason: "known failure pattern is empty"}
		}
	}
	for _, extraction := range c.OutputExtractions {
		if !identifier.MatchString(extraction.Name) {
			return cerrors.Specification{Target: c.Command, Reason: fmt.Sprintf("extraction name '%s' is not an identifier", extraction.Name)}
		}
		if _, err := regexp.Compile(extraction.Regex); err != nil {
			return cerrors.Specification{Target: c.Command, Reason: fmt.Sprintf("extraction '%s' has an invalid regex: %v", extraction.Name, err)}
		}
	}
	return nil
}

// Matches reports whether pattern occurs in text, either literally or as a regular expression
func Matches(text, pattern string) bool {
	if strings.Contains(text, pattern) {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// MatchKnownFailure returns the first known failure whose pattern occurs in text
func (c Command) MatchKnownFailure(text string) (KnownFailure, bool) {
	for _, failure := range c.KnownFailures {
		if Matches(text, failure.Pattern) {
			return failure, true
		}
	}
	return KnownFailure{}, false
}

// Validate checks every command of the list and reports the offending index
func Validate(commands []Command) error {
	for i, c := range commands {
		if err := c.Validate(); err != nil {
			return cerrors.Specification{Target: fmt.Sprintf("command #%d", i), Reason: err.Error()}
		}
	}
	return nil
}

// Strings returns the raw command strings of the list
func Strings(commands []Command) []string {
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		out = append(out, c.Command)
	}
	return out
}
