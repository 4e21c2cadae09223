package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

func inMillis(d time.Duration) *types.Schedule {
	return &types.Schedule{TimeInMillis: time.Now().Add(d).UnixMilli()}
}

func TestFixedTimeFiresOnce(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 2)
	require.NoError(t, s.Schedule("job-1", inMillis(20*time.Millisecond), func() { fired <- struct{}{} }))
	assert.Equal(t, []string{"job-1"}, s.Jobs())

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
	assert.Eventually(t, func() bool { return len(s.Jobs()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestPausedFixedTimeFiresOnResume(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 2)
	require.NoError(t, s.Schedule("job-1", inMillis(10*time.Millisecond), func() { fired <- struct{}{} }))
	require.NoError(t, s.Pause("job-1"))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, fired, 0)

	require.NoError(t, s.Resume("job-1"))
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("pending job did not fire on resume")
	}
}

func TestCancel(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 1)
	require.NoError(t, s.Schedule("job-1", inMillis(30*time.Millisecond), func() { fired <- struct{}{} }))
	require.NoError(t, s.Cancel("job-1"))

	time.Sleep(80 * time.Millisecond)
	assert.Len(t, fired, 0)
	assert.Error(t, s.Cancel("job-1"))
	assert.Error(t, s.Pause("job-1"))
	assert.Error(t, s.Resume("job-1"))
}

func TestCronJobs(t *testing.T) {
	s := New()
	count := 0
	require.NoError(t, s.Schedule("nightly", &types.Schedule{CronExpression: "0 2 * * *"}, func() { count++ }))
	s.Start()
	defer s.Stop()

	next, err := s.Next("nightly")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Hour())

	j := s.jobs["nightly"]
	j.Run()
	require.NoError(t, s.Pause("nightly"))
	j.Run()
	require.NoError(t, s.Resume("nightly"))
	assert.Equal(t, 1, count, "cron firings while paused are dropped")
	assert.Equal(t, []string{"nightly"}, s.Jobs())
}

func TestScheduleRejects(t *testing.T) {
	tests := []struct {
		name     string
		schedule *types.Schedule
	}{
		{"missing", nil},
		{"empty", &types.Schedule{}},
		{"both", &types.Schedule{CronExpression: "* * * * *", TimeInMillis: time.Now().Add(time.Hour).UnixMilli()}},
		{"bad cron", &types.Schedule{CronExpression: "every tuesday"}},
		{"past", &types.Schedule{TimeInMillis: time.Now().Add(-time.Hour).UnixMilli()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			assert.Error(t, s.Schedule("job", tt.schedule, func() {}))
			assert.Empty(t, s.Jobs())
		})
	}
}
