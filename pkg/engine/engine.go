// Package engine runs ordered command lists against an executor, applying the retry,
// known failure classification and output extraction contract of every command.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/telemetry"
	"github.com/litmuschaos/fault-orchestrator/pkg/utils/retry"
)

// Engine is stateless between runs and safe for concurrent use
type Engine struct {
	secrets []string
	metrics *telemetry.Metrics
	// interval is the unit of RetryIntervalSeconds, shortened in tests
	interval time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithSecrets masks the given values in every logged, recorded or raised command string
func WithSecrets(secrets ...string) Option {
	return func(e *Engine) {
		e.secrets = append(e.secrets, secrets...)
	}
}

// WithMetrics exports command and attempt counts
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// New returns an engine
func New(opts ...Option) *Engine {
	e := &Engine{interval: time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the commands in order and returns the stdout of the last one.
// Values extracted from a command's stdout are stored in vars for the commands after it.
// The first command failing after its retries aborts the list with a cerrors.Execution
// root cause, unless it ignores its exit value.
func (e *Engine) Run(ctx context.Context, exec executor.CommandExecutor, commands []command.Command, sink Sink, vars Variables) (string, error) {
	if err := command.Validate(commands); err != nil {
		return "", stacktrace.Propagate(err, "invalid command list")
	}
	if sink == nil {
		sink = Discard
	}
	if vars == nil {
		vars = Variables{}
	}

	ctx, span := telemetry.StartSpan(ctx, "RunCommands")
	defer span.End()
	span.SetAttributes(attribute.Int("commands", len(commands)))

	var output string
	for i, cmd := range commands {
		stdout, err := e.run(ctx, exec, i, cmd, sink, vars)
		output = stdout
		if err != nil {
			span.RecordError(err)
			return output, stacktrace.Propagate(err, "command list aborted at command #%d of %d", i, len(commands))
		}
	}
	return output, nil
}

// run drives the attempts of one command
func (e *Engine) run(ctx context.Context, exec executor.CommandExecutor, index int, cmd command.Command, sink Sink, vars Variables) (string, error) {
	rendered := vars.Substitute(cmd.Command)
	display := command.Redact(rendered, e.secrets...)
	if unresolved := References(rendered); len(unresolved) > 0 {
		log.Warnf("[Command]: command #%d references variables with no captured value: %v", index, unresolved)
	}
	log.InfoWithValues("[Command]: Executing command", logrus.Fields{
		"Index":   index,
		"Command": display,
		"Retries": cmd.Retries,
	})

	var stdout string
	err := retry.
		Times(uint(cmd.Retries + 1)).
		Wait(time.Duration(cmd.RetryIntervalSeconds) * e.interval).
		TryWithContext(ctx, func(attempt uint) error {
			start := time.Now()
			result, execErr := e.attempt(ctx, exec, rendered, cmd.TimeoutSeconds)
			stdout = result.Stdout
			e.metrics.Attempt(ctx)

			reason := evaluate(cmd, result, execErr)
			outcome := command.Outcome{
				Index:     index,
				Attempt:   int(attempt) + 1,
				Command:   display,
				ExitCode:  result.ExitCode,
				Stdout:    command.Redact(result.Stdout, e.secrets...),
				Stderr:    command.Redact(result.Stderr, e.secrets...),
				Succeeded: reason == "",
				Duration:  time.Since(start),
			}
			if reason == "" {
				sink.Record(outcome)
				return nil
			}

			failure, known := cmd.MatchKnownFailure(failureText(result, execErr))
			outcome.Explanation = failure.Explanation
			sink.Record(outcome)
			log.Debugf("[Command]: attempt %d of command #%d failed, %s", attempt+1, index, command.Redact(reason, e.secrets...))

			err := cerrors.Execution{
				Index:       index,
				Command:     display,
				Attempts:    int(attempt) + 1,
				ExitCode:    result.ExitCode,
				Reason:      command.Redact(reason, e.secrets...),
				Explanation: failure.Explanation,
			}
			if known && failure.Fatal {
				return retry.Stop(err)
			}
			return err
		})

	if err == nil {
		e.metrics.CommandFinished(ctx, true)
		e.extract(index, cmd, stdout, vars)
		return stdout, nil
	}

	e.metrics.CommandFinished(ctx, false)
	var execution cerrors.Execution
	e.metrics.Failure(ctx, errors.As(err, &execution) && execution.Explanation != "")
	if cmd.IgnoreExitValueCheck {
		log.Warnf("[Command]: ignoring failure of command #%d, %v", index, err)
		e.extract(index, cmd, stdout, vars)
		return stdout, nil
	}
	log.ErrorWithValues("[Command]: Command failed", logrus.Fields{
		"Index":  index,
		"Reason": err.Error(),
	})
	return stdout, err
}

// attempt runs the command once, bounded by its timeout
func (e *Engine) attempt(ctx context.Context, exec executor.CommandExecutor, cmd string, timeoutSeconds int) (executor.Result, error) {
	if timeoutSeconds <= 0 {
		return exec.Execute(ctx, cmd)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()
	result, err := exec.Execute(attemptCtx, cmd)
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return result, cerrors.Transport{Reason: fmt.Sprintf("timed out after %ds", timeoutSeconds)}
	}
	return result, err
}

// evaluate returns why the attempt failed, empty on success
func evaluate(cmd command.Command, result executor.Result, execErr error) string {
	if execErr != nil {
		return fmt.Sprintf("transport error: %v", execErr)
	}
	if len(cmd.ExpectedOutputs) > 0 {
		for _, expected := range cmd.ExpectedOutputs {
			if !command.Matches(result.Stdout, expected) {
				return fmt.Sprintf("expected output '%s' not found", expected)
			}
		}
		return ""
	}
	if result.ExitCode != 0 && !cmd.IgnoreExitValueCheck {
		if stderr := firstLine(result.Stderr); stderr != "" {
			return fmt.Sprintf("exit code %d: %s", result.ExitCode, stderr)
		}
		return fmt.Sprintf("exit code %d", result.ExitCode)
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func failureText(result executor.Result, execErr error) string {
	parts := []string{result.Stdout, result.Stderr}
	if execErr != nil {
		parts = append(parts, execErr.Error())
	}
	return strings.Join(parts, "\n")
}

func (e *Engine) extract(index int, cmd command.Command, stdout string, vars Variables) {
	for _, extraction := range cmd.OutputExtractions {
		value, ok := extract(stdout, extraction.Regex)
		if !ok {
			log.Debugf("[Command]: extraction '%s' of command #%d did not match", extraction.Name, index)
			continue
		}
		vars[extraction.Name] = value
	}
}
