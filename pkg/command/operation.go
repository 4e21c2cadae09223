package command

import (
	"regexp"
	"strings"
)

var operationName = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

const trailerSeparator = "--"

// Operation is a transport interpreted command of the form
//
//	NAME:--key value --key2 value2 -- trailing shell text
//
// Executors that drive an API instead of a shell (docker, kubernetes, cloud) dispatch on Name.
type Operation struct {
	Name    string
	keys    []string
	values  map[string]string
	Trailer string
}

// Op starts building an operation
func Op(name string) *Operation {
	return &Operation{Name: name, values: map[string]string{}}
}

// Arg appends --key value, empty values are skipped
func (o *Operation) Arg(key, value string) *Operation {
	if value == "" {
		return o
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
	return o
}

// Shell sets the trailing shell text
func (o *Operation) Shell(trailer string) *Operation {
	o.Trailer = trailer
	return o
}

// Get returns the value of key, empty when absent
func (o *Operation) Get(key string) string {
	return o.values[key]
}

// Has reports whether key was supplied
func (o *Operation) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns the argument keys in insertion order
func (o *Operation) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Operation) String() string {
	var b strings.Builder
	b.WriteString(o.Name)
	b.WriteString(":")
	for i, k := range o.keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("--")
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(o.values[k])
	}
	if o.Trailer != "" {
		if len(o.keys) > 0 {
			b.WriteString(" ")
		}
		b.WriteString(trailerSeparator)
		b.WriteString(" ")
		b.WriteString(o.Trailer)
	}
	return b.String()
}

// Command wraps the operation into a Command with default policies
func (o *Operation) Command() Command {
	return New(o.String())
}

// ParseOperation parses s, ok is false when s is a plain shell command
func ParseOperation(s string) (*Operation, bool) {
	idx := strings.Index(s, ":")
	if idx <= 0 || !operationName.MatchString(s[:idx]) {
		return nil, false
	}
	op := Op(s[:idx])
	rest := strings.TrimSpace(s[idx+1:])

	head := rest
	switch {
	case rest == trailerSeparator:
		head = ""
	case strings.HasPrefix(rest, trailerSeparator+" "):
		head, op.Trailer = "", strings.TrimSpace(rest[len(trailerSeparator)+1:])
	default:
		if i := strings.Index(rest, " "+trailerSeparator+" "); i >= 0 {
			head, op.Trailer = rest[:i], strings.TrimSpace(rest[i+len(trailerSeparator)+2:])
		} else if strings.HasSuffix(rest, " "+trailerSeparator) {
			head = strings.TrimSuffix(rest, " "+trailerSeparator)
		}
	}

	tokens := strings.Fields(head)
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if !strings.HasPrefix(token, "--") || len(token) == 2 {
			return nil, false
		}
		key := strings.TrimPrefix(token, "--")
		value := ""
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
			value = tokens[i+1]
			i++
		}
		if _, seen := op.values[key]; !seen {
			op.keys = append(op.keys, key)
		}
		op.values[key] = value
	}
	return op, true
}
