package engine

import "regexp"

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Variables holds the values captured by output extractions, by name
type Variables map[string]string

// Substitute replaces every ${name} with its captured value, unknown names are left intact
func (v Variables) Substitute(template string) string {
	if len(v) == 0 {
		return template
	}
	return variablePattern.ReplaceAllStringFunc(template, func(ref string) string {
		name := variablePattern.FindStringSubmatch(ref)[1]
		if value, ok := v[name]; ok {
			return value
		}
		return ref
	})
}

// References returns the variable names used by template, in order of appearance
func References(template string) []string {
	var names []string
	for _, match := range variablePattern.FindAllStringSubmatch(template, -1) {
		names = append(names, match[1])
	}
	return names
}

// extract runs the regex against stdout, returning the first capture group when there is one
func extract(stdout, expr string) (string, bool) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return "", false
	}
	match := re.FindStringSubmatch(stdout)
	if match == nil {
		return "", false
	}
	if len(match) > 1 {
		return match[1], true
	}
	return match[0], true
}
