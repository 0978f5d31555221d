package env

import "sync"

// Glob returns the process environment. It is loaded on the first call only, later changes
// to os env or .env files are not seen.
var Glob = sync.OnceValue(func() Env {
	return Load()
})
