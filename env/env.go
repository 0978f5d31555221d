// Package env merges configuration from the os environment, .env files and command line
// flags into one key/value set. Callers don't care where a value came from.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// merge merges "from" env into "to" env, keeping already existing values
func merge(from map[string]any, to map[string]any) {
	for k, v := range from {
		if _, ok := to[k]; !ok {
			to[k] = v
		}
	}
}

func unquote(s string) string {
	if (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
		(strings.HasPrefix(s, `'`) && strings.HasSuffix(s, `'`)) {
		return s[1 : len(s)-1]
	}
	return s
}

type Var struct {
	Key   string
	Value any
}

func MkVar(k string, v any) Var {
	return Var{Key: k, Value: v}
}

type Env map[string]any

func (env Env) add(k string, v any) {
	k = strings.TrimSpace(k)
	if k == "" {
		return
	}
	env[k] = v
}

// Load reads, in increasing precedence, the os environment, .env files, command line flags
// and vars. String values may reference other keys as {key}.
func Load(vars ...Var) Env {
	env := Env{}
	for _, osev := range os.Environ() {
		k, v, _ := strings.Cut(osev, "=")
		v = unquote(strings.TrimSpace(v))
		if v == "" {
			env.add(k, true)
		} else {
			env.add(k, v)
		}
	}
	for k, v := range LoadDotenv() {
		env.add(k, v)
	}
	for k, v := range ParseFlags(os.Args[1:]) {
		env.add(k, v)
	}
	for _, v := range vars {
		env.add(v.Key, v.Value)
	}
	env.expand()
	return env
}

func (env Env) expand() {
	repl := env.Expander()
	for k, v := range env {
		if s, ok := v.(string); ok {
			env[k] = repl.Replace(s)
		}
	}
}

func (env Env) Expander() *strings.Replacer {
	var oldnew []string
	for k := range env {
		new, ok := env.String(k)
		if !ok {
			continue
		}
		oldnew = append(oldnew, fmt.Sprintf("{%s}", k), new)
	}
	return strings.NewReplacer(oldnew...)
}

// Sub returns the keys starting with prefix, with the prefix removed.
func (env Env) Sub(prefix string) Env {
	sub := Env{}
	for k, v := range env {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			sub[rest] = v
		}
	}
	return sub
}

// Var returns the value for the passed key if exists, otherwise, false
func (env Env) Var(key string) (any, bool) {
	v, ok := env[key]
	return v, ok
}

// String returns the string-value for the passed key if exists, otherwise, false
func (env Env) String(key string) (string, bool) {
	s, ok := env[key]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", s), true
}

// Int returns the int-value for the passed key if exists, otherwise, false
func (env Env) Int(key string) (int, bool) {
	s, ok := env.String(key)
	if !ok {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n), true
	}
	return 0, false
}

// Bool accepts booleans (also flags without value) and the usual string forms.
func (env Env) Bool(key string) (bool, bool) {
	v, ok := env[key]
	if !ok {
		return false, false
	}
	if b, ok := v.(bool); ok {
		return b, true
	}
	switch strings.ToLower(fmt.Sprintf("%v", v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func (env Env) Duration(key string) (time.Duration, bool) {
	s, ok := env.String(key)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

// StringOrDefault first tries to lookup the passed key, otherwise return def
func (env Env) StringOrDefault(key string, def string) string {
	if v, ok := env.String(key); ok {
		return v
	}
	return def
}

// IntOrDefault first tries to lookup the passed key, otherwise return def
func (env Env) IntOrDefault(key string, def int) int {
	if v, ok := env.Int(key); ok {
		return v
	}
	return def
}

func (env Env) BoolOrDefault(key string, def bool) bool {
	if v, ok := env.Bool(key); ok {
		return v
	}
	return def
}

func (env Env) DurationOrDefault(key string, def time.Duration) time.Duration {
	if v, ok := env.Duration(key); ok {
		return v
	}
	return def
}
