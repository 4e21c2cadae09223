package engine

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := Variables{"processId": "4242", "dir": "/tmp/agent"}
	tests := []struct {
		template string
		want     string
	}{
		{"kill -9 ${processId}", "kill -9 4242"},
		{"${dir}/bin ${dir}/lib", "/tmp/agent/bin /tmp/agent/lib"},
		{"echo ${missing}", "echo ${missing}"},
		{"echo $processId {processId}", "echo $processId {processId}"},
		{"echo ${1abc}", "echo ${1abc}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, vars.Substitute(tt.template), tt.template)
	}
	assert.Equal(t, "echo ${x}", Variables(nil).Substitute("echo ${x}"))
}

func TestReferences(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, References("${a} and ${b} but not $c"))
	assert.Empty(t, References("plain"))
}

func FuzzSubstitute(f *testing.F) {
	f.Add([]byte("kill -9 ${processId}"))
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		var input struct {
			Template string
			Name     string
			Value    string
		}
		if err := fuzzConsumer.GenerateStruct(&input); err != nil {
			return
		}
		out := Variables{}.Substitute(input.Template)
		if out != input.Template {
			t.Fatalf("empty variables changed %q into %q", input.Template, out)
		}
		for _, name := range References(input.Template) {
			if name == input.Name {
				return
			}
		}
		// a variable the template never references must not change it
		out = Variables{input.Name: input.Value}.Substitute(input.Template)
		if out != input.Template {
			t.Fatalf("unreferenced variable %q changed %q into %q", input.Name, input.Template, out)
		}
	})
}
