package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
)

type fakeEC2 struct {
	ec2iface.EC2API
	stopped   []string
	started   []string
	err       error
	filters   []*ec2.Filter
	instances []string
}

func stateChange(id, from, to string) *ec2.InstanceStateChange {
	return &ec2.InstanceStateChange{
		InstanceId:    aws.String(id),
		PreviousState: &ec2.InstanceState{Name: aws.String(from)},
		CurrentState:  &ec2.InstanceState{Name: aws.String(to)},
	}
}

func (f *fakeEC2) StopInstancesWithContext(_ aws.Context, in *ec2.StopInstancesInput, _ ...request.Option) (*ec2.StopInstancesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &ec2.StopInstancesOutput{}
	for _, id := range aws.StringValueSlice(in.InstanceIds) {
		f.stopped = append(f.stopped, id)
		out.StoppingInstances = append(out.StoppingInstances, stateChange(id, "running", "stopping"))
	}
	return out, nil
}

func (f *fakeEC2) StartInstancesWithContext(_ aws.Context, in *ec2.StartInstancesInput, _ ...request.Option) (*ec2.StartInstancesOutput, error) {
	out := &ec2.StartInstancesOutput{}
	for _, id := range aws.StringValueSlice(in.InstanceIds) {
		f.started = append(f.started, id)
		out.StartingInstances = append(out.StartingInstances, stateChange(id, "stopped", "pending"))
	}
	return out, nil
}

func (f *fakeEC2) DescribeInstancesPagesWithContext(_ aws.Context, in *ec2.DescribeInstancesInput, fn func(*ec2.DescribeInstancesOutput, bool) bool, _ ...request.Option) error {
	f.filters = in.Filters
	page := &ec2.DescribeInstancesOutput{Reservations: []*ec2.Reservation{{}}}
	for _, id := range f.instances {
		page.Reservations[0].Instances = append(page.Reservations[0].Instances, &ec2.Instance{InstanceId: aws.String(id)})
	}
	fn(page, true)
	return nil
}

type fakeSSM struct {
	ssmiface.SSMAPI
	commands []string
	polls    int
	statuses []string
	code     int64
}

func (f *fakeSSM) SendCommandWithContext(_ aws.Context, in *ssm.SendCommandInput, _ ...request.Option) (*ssm.SendCommandOutput, error) {
	f.commands = append(f.commands, aws.StringValue(in.Parameters["commands"][0]))
	return &ssm.SendCommandOutput{Command: &ssm.Command{CommandId: aws.String("cmd-1")}}, nil
}

func (f *fakeSSM) GetCommandInvocationWithContext(_ aws.Context, in *ssm.GetCommandInvocationInput, _ ...request.Option) (*ssm.GetCommandInvocationOutput, error) {
	status := f.statuses[len(f.statuses)-1]
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	return &ssm.GetCommandInvocationOutput{
		Status:                aws.String(status),
		StandardOutputContent: aws.String("stressing " + aws.StringValue(in.InstanceId)),
		ResponseCode:          aws.Int64(f.code),
	}, nil
}

func TestStopAndStart(t *testing.T) {
	api := &fakeEC2{}
	e := NewWithClients(api, nil, "us-east-1")

	result, err := e.Execute(context.Background(), "AWS_EC2_STOP:--instanceIds i-2,i-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, []string{"i-2", "i-1"}, api.stopped)
	assert.Equal(t, "i-1: running -> stopping\ni-2: running -> stopping", result.Stdout)

	result, err = e.Execute(context.Background(), "AWS_EC2_START:--instanceIds i-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"i-1"}, api.started)
	assert.Contains(t, result.Stdout, "stopped -> pending")
}

func TestAPIErrors(t *testing.T) {
	api := &fakeEC2{err: awserr.New("InvalidInstanceID.NotFound", "The instance ID 'i-9' does not exist", nil)}
	result, err := NewWithClients(api, nil, "us-east-1").Execute(context.Background(), "AWS_EC2_STOP:--instanceIds i-9")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "InvalidInstanceID.NotFound: The instance ID 'i-9' does not exist", result.Stderr)

	api.err = awserr.New(request.ErrCodeRequestError, "dial tcp: no route to host", nil)
	_, err = NewWithClients(api, nil, "us-east-1").Execute(context.Background(), "AWS_EC2_STOP:--instanceIds i-9")
	var transport cerrors.Transport
	assert.ErrorAs(t, err, &transport)
}

func TestCheckAWSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"aws error", awserr.New("UnauthorizedOperation", "not allowed to stop 100% of i-1", nil), "UnauthorizedOperation: not allowed to stop 100% of i-1"},
		{"plain error keeps percent verbs", errors.New("quota at 100%s of %d"), "quota at 100%s of %d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, CheckAWSError(tt.err), tt.want)
		})
	}
}

func TestMalformedCommands(t *testing.T) {
	e := NewWithClients(&fakeEC2{}, &fakeSSM{}, "us-east-1")
	for _, cmd := range []string{"aws ec2 stop-instances", "AWS_EC2_STOP:--region us-east-1", "AWS_EC2_HIBERNATE:--instanceIds i-1", "AWS_SSM_RUN:--instanceIds i-1"} {
		result, err := e.Execute(context.Background(), cmd)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ExitCode, cmd)
	}
}

func TestRunShellPollsUntilTerminalStatus(t *testing.T) {
	api := &fakeSSM{statuses: []string{ssm.CommandInvocationStatusPending, ssm.CommandInvocationStatusInProgress, ssm.CommandInvocationStatusSuccess}}
	e := NewWithClients(nil, api, "us-east-1")
	e.pollInterval = time.Millisecond

	result, err := e.Execute(context.Background(), "AWS_SSM_RUN:--instanceIds i-1 -- stress-ng --cpu 2 --timeout 10s")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, []string{"stress-ng --cpu 2 --timeout 10s"}, api.commands)
	assert.Equal(t, 3, api.polls)
	assert.Equal(t, "[i-1]\nstressing i-1", result.Stdout)
}

func TestRunShellFailedInvocation(t *testing.T) {
	api := &fakeSSM{statuses: []string{ssm.CommandInvocationStatusFailed}, code: 127}
	e := NewWithClients(nil, api, "us-east-1")
	e.pollInterval = time.Millisecond

	result, err := e.Execute(context.Background(), "AWS_SSM_RUN:--instanceIds i-1 -- stress-ng")
	require.NoError(t, err)
	assert.Equal(t, 127, result.ExitCode)
}

func TestListInstances(t *testing.T) {
	api := &fakeEC2{instances: []string{"i-3", "i-1"}}
	ids, err := NewWithClients(api, nil, "us-east-1").ListInstances(context.Background(), map[string]string{"team": "payments"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-1", "i-3"}, ids)
	require.Len(t, api.filters, 2)
	assert.Equal(t, "tag:team", aws.StringValue(api.filters[1].Name))

	_, err = NewWithClients(api, nil, "us-east-1").ListInstances(context.Background(), nil)
	assert.True(t, cerrors.IsNoTargets(err))
}
