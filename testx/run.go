package testx

import (
	"fmt"
	"testing"
)

// Name is the subtest name for the i-th entry of a test table.
func Name(i int) string {
	return fmt.Sprintf("case_%02d", i)
}

func RunIth(i int, t *testing.T, f func(t *testing.T)) {
	t.Helper()
	t.Run(Name(i), f)
}

// RunTable runs fn as a named subtest for every entry of tests, each with a fresh Tx.
func RunTable[TEST any](t *testing.T, tests []TEST, fn func(tx *Tx, test TEST)) {
	t.Helper()
	for i, test := range tests {
		RunIth(i, t, func(t *testing.T) {
			fn(NewTx(t), test)
		})
	}
}
