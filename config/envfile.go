package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// ApplyEnvFile parses a .env style file and exports its variables into the
// process environment. Variables already set in the environment win over the
// file. A missing file is not an error.
func ApplyEnvFile(filename string) error {
	vars, err := ParseEnvFile(filename)
	if err != nil {
		return err
	}
	for _, v := range vars {
		if _, ok := os.LookupEnv(v.Key); ok {
			continue
		}
		if err := os.Setenv(v.Key, v.Val); err != nil {
			return errors.Wrapf(err, "setting %s", v.Key)
		}
	}
	return nil
}

// Var is one KEY=VALUE pair from an environment file, in file order.
type Var struct {
	Key string
	Val string
}

// ParseEnvFile reads a .env style file. Blank lines and # comments are
// skipped, quotes around values are stripped, and ${NAME} or ${NAME:-def}
// references resolve against earlier entries in the same file and then the
// process environment. A missing file yields an empty list.
func ParseEnvFile(filename string) ([]Var, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	return parseEnvBuffer(buf), nil
}

func parseEnvBuffer(buf []byte) []Var {
	var vars []Var
	seen := map[string]string{}
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, rawVal, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		val := ""
		if found {
			val = interpolate(dequote(strings.TrimSpace(rawVal)), seen)
		}
		seen[key] = val
		vars = append(vars, Var{Key: key, Val: val})
	}
	return vars
}

func dequote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// interpolate expands ${NAME} and ${NAME:-default} references. Unknown
// references without a default are preserved verbatim.
func interpolate(input string, seen map[string]string) string {
	if !strings.Contains(input, "${") {
		return input
	}
	var out strings.Builder
	for {
		start := strings.Index(input, "${")
		if start < 0 {
			break
		}
		end := strings.Index(input[start:], "}")
		if end < 0 {
			break
		}
		end += start
		out.WriteString(input[:start])

		name, def, hasDefault := strings.Cut(input[start+2:end], ":-")
		val, ok := seen[name]
		if !ok {
			val, ok = os.LookupEnv(name)
		}
		switch {
		case ok && val != "":
			out.WriteString(val)
		case hasDefault:
			out.WriteString(def)
		default:
			out.WriteString(input[start : end+1])
		}
		input = input[end+1:]
	}
	out.WriteString(input)
	return out.String()
}
