package env

import (
	"strings"
)

// ParseFlags parses (commandline) flags and returns them as key/value pairs.
// The following forms are permitted:
// -flag     => just a boolean flag
// --flag    => double dashes are also permitted
// -flag=x   => single dash
// -flag x   => single dash, no equal
// A bare "--" ends flag parsing.
func ParseFlags(args []string) map[string]any {
	fs := map[string]any{}

	flagName := func(s string) (string, bool) {
		switch {
		case strings.HasPrefix(s, "--"):
			return strings.TrimPrefix(s, "--"), true
		case strings.HasPrefix(s, "-") && len(s) > 1:
			return strings.TrimPrefix(s, "-"), true
		default:
			return "", false
		}
	}

	var currName string
	for _, arg := range args {
		if arg == "--" {
			break
		}
		name, ok := flagName(arg)
		if !ok {
			// a value for the pending flag, otherwise just an arg
			if currName != "" {
				fs[currName] = arg
				currName = ""
			}
			continue
		}
		if currName != "" {
			// prev is a bool flag
			fs[currName] = true
			currName = ""
		}
		if k, v, ok := strings.Cut(name, "="); ok {
			fs[k] = v
		} else {
			currName = name
		}
	}
	if currName != "" {
		fs[currName] = true
	}
	return fs
}
