package aws

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/sirupsen/logrus"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/utils/retry"
)

// Operation names understood by the executor
const (
	OpStop      = "AWS_EC2_STOP"
	OpStart     = "AWS_EC2_START"
	OpTerminate = "AWS_EC2_TERMINATE"
	OpReboot    = "AWS_EC2_REBOOT"
	OpSSMRun    = "AWS_SSM_RUN"
)

// Executor runs AWS_* operations with the ec2 and ssm apis
type Executor struct {
	ec2          ec2iface.EC2API
	ssm          ssmiface.SSMAPI
	region       string
	pollAttempts uint
	pollInterval time.Duration
}

// New creates the api clients from the session
func New(sess *session.Session, region string) *Executor {
	return NewWithClients(ec2.New(sess), ssm.New(sess), region)
}

// NewWithClients wraps existing api clients
func NewWithClients(ec2API ec2iface.EC2API, ssmAPI ssmiface.SSMAPI, region string) *Executor {
	return &Executor{ec2: ec2API, ssm: ssmAPI, region: region, pollAttempts: 60, pollInterval: 5 * time.Second}
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, cmd string) (executor.Result, error) {
	op, ok := command.ParseOperation(cmd)
	if !ok {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported aws command: %s", cmd)}, nil
	}
	ids := splitIDs(op.Get("instanceIds"))
	if len(ids) == 0 {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires --instanceIds", op.Name)}, nil
	}

	log.InfoWithValues("[AWS]: Invoking operation", logrus.Fields{
		"Operation":   op.Name,
		"InstanceIds": ids,
		"Region":      e.region,
	})

	switch op.Name {
	case OpStop:
		out, err := e.ec2.StopInstancesWithContext(ctx, &ec2.StopInstancesInput{InstanceIds: aws.StringSlice(ids)})
		if err != nil {
			return e.failure(err)
		}
		return executor.Result{Stdout: stateChanges(out.StoppingInstances)}, nil
	case OpStart:
		out, err := e.ec2.StartInstancesWithContext(ctx, &ec2.StartInstancesInput{InstanceIds: aws.StringSlice(ids)})
		if err != nil {
			return e.failure(err)
		}
		return executor.Result{Stdout: stateChanges(out.StartingInstances)}, nil
	case OpTerminate:
		out, err := e.ec2.TerminateInstancesWithContext(ctx, &ec2.TerminateInstancesInput{InstanceIds: aws.StringSlice(ids)})
		if err != nil {
			return e.failure(err)
		}
		return executor.Result{Stdout: stateChanges(out.TerminatingInstances)}, nil
	case OpReboot:
		if _, err := e.ec2.RebootInstancesWithContext(ctx, &ec2.RebootInstancesInput{InstanceIds: aws.StringSlice(ids)}); err != nil {
			return e.failure(err)
		}
		return executor.Result{Stdout: fmt.Sprintf("reboot requested for %s", strings.Join(ids, ","))}, nil
	case OpSSMRun:
		return e.runShell(ctx, ids, op.Trailer)
	}
	return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported aws operation: %s", op.Name)}, nil
}

// runShell sends the trailing shell text through AWS-RunShellScript and waits for every invocation
func (e *Executor) runShell(ctx context.Context, ids []string, shell string) (executor.Result, error) {
	if shell == "" {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires a trailing command", OpSSMRun)}, nil
	}
	sent, err := e.ssm.SendCommandWithContext(ctx, &ssm.SendCommandInput{
		DocumentName: aws.String("AWS-RunShellScript"),
		InstanceIds:  aws.StringSlice(ids),
		Parameters: map[string][]*string{
			"commands": {aws.String(shell)},
		},
	})
	if err != nil {
		return e.failure(err)
	}
	commandID := aws.StringValue(sent.Command.CommandId)

	var stdout, stderr strings.Builder
	exitCode := 0
	for _, id := range ids {
		var invocation *ssm.GetCommandInvocationOutput
		err := retry.
			Times(e.pollAttempts).
			Wait(e.pollInterval).
			TryWithContext(ctx, func(attempt uint) error {
				out, err := e.ssm.GetCommandInvocationWithContext(ctx, &ssm.GetCommandInvocationInput{
					CommandId:  aws.String(commandID),
					InstanceId: aws.String(id),
				})
				if err != nil {
					return err
				}
				switch aws.StringValue(out.Status) {
				case ssm.CommandInvocationStatusPending, ssm.CommandInvocationStatusInProgress, ssm.CommandInvocationStatusDelayed:
					return fmt.Errorf("command %s is %s on %s", commandID, aws.StringValue(out.Status), id)
				}
				invocation = out
				return nil
			})
		if err != nil {
			return executor.Result{Stdout: stdout.String(), Stderr: stderr.String()}, cerrors.Transport{Target: id, Reason: err.Error()}
		}
		fmt.Fprintf(&stdout, "[%s]\n%s", id, aws.StringValue(invocation.StandardOutputContent))
		stderr.WriteString(aws.StringValue(invocation.StandardErrorContent))
		if code := int(aws.Int64Value(invocation.ResponseCode)); code != 0 && exitCode == 0 {
			exitCode = code
		}
		if aws.StringValue(invocation.Status) != ssm.CommandInvocationStatusSuccess && exitCode == 0 {
			exitCode = 1
		}
	}
	return executor.Result{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// failure turns api refusals into command failures and connectivity problems into transport errors
func (e *Executor) failure(err error) (executor.Result, error) {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case request.ErrCodeRequestError, request.CanceledErrorCode, request.ErrCodeResponseTimeout:
			return executor.Result{}, cerrors.Transport{Target: e.region, Reason: err.Error()}
		}
	}
	if isThrottle(err) {
		log.Warnf("[AWS]: request throttled in %s", e.region)
	}
	return executor.Result{ExitCode: 1, Stderr: CheckAWSError(err).Error()}, nil
}

func stateChanges(changes []*ec2.InstanceStateChange) string {
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("%s: %s -> %s",
			aws.StringValue(c.InstanceId),
			aws.StringValue(c.PreviousState.Name),
			aws.StringValue(c.CurrentState.Name)))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
