package agent

import (
	"fmt"
	"path"
	"strings"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Known failure classes of the staging steps
var (
	copyFailures = []command.KnownFailure{
		{Pattern: "No such file or directory", Explanation: "the agent archive or the remote directory does not exist", Fatal: true},
		{Pattern: "(?i)no space left on device", Explanation: "the target has no disk space left for the agent archive", Fatal: true},
		{Pattern: "Permission denied", Explanation: "the remote user cannot write the agent archive", Fatal: true},
	}
	installFailures = []command.KnownFailure{
		{Pattern: "Operation not permitted", Explanation: "the remote user cannot change the mode of the agent files", Fatal: true},
		{Pattern: "(?i)tar: .*not found|tar: command not found", Explanation: "tar is not installed on the target", Fatal: true},
		{Pattern: "(?i)gzip: stdin: not in gzip format|unexpected end of file", Explanation: "the staged agent archive is corrupt"},
	}
	launchFailures = []command.KnownFailure{
		{Pattern: "(?i)address already in use", Explanation: "a resident agent is already listening on the port"},
	}
	submitFailures = []command.KnownFailure{
		{Pattern: "(?i)connection refused", Explanation: "the resident agent is not listening yet"},
		{Pattern: "(?i)unknown fault", Explanation: "the resident agent does not support the fault", Fatal: true},
		{Pattern: "(?i)already (injected|running)", Explanation: "a fault with the same id is already active on the target", Fatal: true},
	}
	remediateFailures = []command.KnownFailure{
		{Pattern: "(?i)connection refused", Explanation: "the resident agent is not running, the fault may already be gone"},
		{Pattern: "(?i)fault .* not found|no such fault", Explanation: "the resident agent has no fault with this id", Fatal: true},
	}
)

// Stager composes the staged agent sub-steps: copy, chmod, extract, launch and submit
type Stager struct {
	Script faults.ScriptDescriptor
	// Dir is where the archive is extracted on the target
	Dir  string
	Port int
}

// Entry returns the path of the agent executable on the target
func (s Stager) Entry() string {
	return path.Join(s.Dir, s.Script.Entry)
}

// Install returns the copy, chmod and extract commands
func (s Stager) Install(shell Shell, spec types.FaultSpecification) []command.Command {
	archive := s.Script.RemotePath
	return []command.Command{
		command.New(shell.Copy(spec, s.Script.LocalPath, archive)).
			WithRetries(2, 2).
			WithKnownFailures(copyFailures...),
		command.New(shell.Run(spec, fmt.Sprintf("chmod 0755 %s", archive))).
			WithKnownFailures(installFailures...),
		command.New(shell.Run(spec, fmt.Sprintf("mkdir -p %s && tar -xzf %s -C %s && chmod +x %s", s.Dir, archive, s.Dir, s.Entry()))).
			WithRetries(1, 2).
			WithKnownFailures(installFailures...),
	}
}

// Launch starts the resident agent detached, a failure here is left to the submit step
func (s Stager) Launch(shell Shell, spec types.FaultSpecification, extra ...string) command.Command {
	args := append([]string{s.Entry(), "--serve", fmt.Sprintf("--port %d", s.Port)}, extra...)
	script := fmt.Sprintf("nohup %s > %s 2>&1 &", strings.Join(args, " "), path.Join(s.Dir, "agent.log"))
	return command.New(shell.Run(spec, script)).
		IgnoringExitValue().
		WithKnownFailures(launchFailures...)
}

// Submit asks the resident agent to inject the fault under the spec's fault id.
// A --timeout in milliseconds is appended when the arguments do not carry one.
func (s Stager) Submit(shell Shell, spec types.FaultSpecification) command.Command {
	args := []string{"--operation inject", "--faultname " + spec.FaultName}
	args = append(args, spec.SortedArgs()...)
	if _, ok := spec.Args["timeout"]; !ok && spec.TimeoutInMilliseconds > 0 {
		args = append(args, fmt.Sprintf("--timeout %d", spec.TimeoutInMilliseconds))
	}
	args = append(args, "--faultId "+spec.ID())
	return command.New(shell.Run(spec, s.client(args))).
		WithRetries(3, 5).
		WithKnownFailures(submitFailures...)
}

// Remediate asks the resident agent to remove the fault with the spec's fault id
func (s Stager) Remediate(shell Shell, spec types.FaultSpecification) command.Command {
	return command.New(shell.Run(spec, s.client([]string{"--operation remediate", "--faultId " + spec.ID()}))).
		WithRetries(3, 5).
		WithKnownFailures(remediateFailures...)
}

func (s Stager) client(args []string) string {
	return fmt.Sprintf("%s --port %d %s", s.Entry(), s.Port, strings.Join(args, " "))
}
