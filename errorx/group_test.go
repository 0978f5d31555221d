package errorx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mazzegi/docfacade/testx"
)

func TestGroup(t *testing.T) {
	tx := testx.NewTx(t)

	g := NewGroup(nil, nil)
	tx.AssertEqual(true, g.IsEmpty())
	tx.AssertNoErr(g.Error())

	errA := fmt.Errorf("close-store")
	errB := fmt.Errorf("close-bucket")
	g.Append(errA, nil, errB)
	err := g.Error()
	tx.AssertErr(err)
	tx.AssertEqual("close-store | close-bucket", err.Error())
	tx.AssertEqual(true, errors.Is(err, errA))
	tx.AssertEqual(true, errors.Is(err, errB))

	called := false
	g.Do(func() error {
		called = true
		return nil
	})
	tx.AssertEqual(false, called)
}
