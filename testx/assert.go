package testx

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/constraints"
)

// diff renders a readable difference; values cmp cannot handle (unexported fields) yield "".
func diff(want, have any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = ""
		}
	}()
	return cmp.Diff(want, have)
}

func failEqual(t *testing.T, want, have any) {
	t.Helper()
	if d := diff(want, have); d != "" {
		t.Fatalf("want %v, have %v\n(-want +have):\n%s", want, have, d)
	}
	t.Fatalf("want %v, have %v", want, have)
}

func AssertEqual(t *testing.T, want, have any) {
	t.Helper()
	if reflect.DeepEqual(want, have) {
		return
	}
	failEqual(t, want, have)
}

func AssertInRange[T constraints.Ordered](t *testing.T, val, lower, upper T) {
	t.Helper()
	if val >= lower && val <= upper {
		return
	}
	t.Fatalf("%v not in range [%v, %v]", val, lower, upper)
}

func AssertNoErr(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	t.Fatalf("error is not-nil but: %v", err)
}

func AssertErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		return
	}
	t.Fatalf("expect err; got none")
}

func AssertErrIs(t *testing.T, err error, target error) {
	t.Helper()
	if errors.Is(err, target) {
		return
	}
	t.Fatalf("expect err matching %q; got %v", target, err)
}
