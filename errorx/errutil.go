// Package errorx has small helpers around error handling in commands and shutdown paths.
package errorx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

var (
	exit   = os.Exit
	stderr io.Writer = os.Stderr
)

// ExitWhen reports err together with the calling location and exits with status 1.
func ExitWhen(err error) {
	if err == nil {
		return
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		fmt.Fprintf(stderr, "fatal: %v\n", err)
		exit(1)
		return
	}
	fmt.Fprintf(stderr, "fatal: %v [%s:%d]\n", err, filepath.Base(file), line)
	exit(1)
}
