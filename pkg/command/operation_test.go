package command

import (
	"testing"
	"unicode"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationString(t *testing.T) {
	tests := []struct {
		name string
		op   *Operation
		want string
	}{
		{
			name: "single argument",
			op:   Op("DOCKER_PAUSE").Arg("containerName", "testContainer"),
			want: "DOCKER_PAUSE:--containerName testContainer",
		},
		{
			name: "empty values are skipped",
			op:   Op("K8S_EXEC").Arg("namespace", "default").Arg("container", "").Arg("pod", "web-0").Shell("uptime"),
			want: "K8S_EXEC:--namespace default --pod web-0 -- uptime",
		},
		{
			name: "trailer only",
			op:   Op("AWS_SSM_RUN").Shell("pkill stress-ng"),
			want: "AWS_SSM_RUN:-- pkill stress-ng",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestParseOperation(t *testing.T) {
	op, ok := ParseOperation("K8S_EXEC:--namespace default --pod web-0 --container app -- chmod -R 755 /tmp/agent.tar.gz")
	require.True(t, ok)
	assert.Equal(t, "K8S_EXEC", op.Name)
	assert.Equal(t, []string{"namespace", "pod", "container"}, op.Keys())
	assert.Equal(t, "web-0", op.Get("pod"))
	assert.Equal(t, "chmod -R 755 /tmp/agent.tar.gz", op.Trailer)

	op, ok = ParseOperation("AWS_EC2_STOP:--instanceIds i-1,i-2 --force")
	require.True(t, ok)
	assert.True(t, op.Has("force"))
	assert.Equal(t, "", op.Get("force"))
	assert.Equal(t, "i-1,i-2", op.Get("instanceIds"))

	for _, plain := range []string{"echo a:b", "uptime", "lower:--a b", ":--a b", "DOCKER_PAUSE:containerName x"} {
		_, ok := ParseOperation(plain)
		assert.False(t, ok, plain)
	}
}

func TestParseOperationRoundTrip(t *testing.T) {
	original := Op("SSH_COPY").Arg("src", "/opt/agent.tar.gz").Arg("dest", "/tmp/agent.tar.gz")
	parsed, ok := ParseOperation(original.String())
	require.True(t, ok)
	assert.Equal(t, original.String(), parsed.String())
}

func FuzzParseOperation(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		targetStruct := &struct {
			Name    string
			Key     string
			Value   string
			Trailer string
		}{}
		if err := fuzzConsumer.GenerateStruct(targetStruct); err != nil {
			return
		}
		if !operationName.MatchString(targetStruct.Name) || !identifier.MatchString(targetStruct.Key) {
			return
		}
		if len(targetStruct.Value) == 0 || containsSpaceOrDash(targetStruct.Value) {
			return
		}
		op := Op(targetStruct.Name).Arg(targetStruct.Key, targetStruct.Value)
		parsed, ok := ParseOperation(op.String())
		require.True(t, ok)
		require.Equal(t, targetStruct.Value, parsed.Get(targetStruct.Key))
	})
}

func containsSpaceOrDash(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' {
			return true
		}
	}
	return false
}
