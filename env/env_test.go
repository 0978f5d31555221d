package env

import (
	"fmt"
	"testing"
	"time"

	"github.com/mazzegi/docfacade/testx"
)

func TestEnvExpand(t *testing.T) {
	tests := []struct {
		in    []Var
		probe map[string]string
	}{
		{
			in: []Var{
				MkVar("s", "b"),
				MkVar("c", "d"),
			},
			probe: map[string]string{
				"s": "b",
				"c": "d",
			},
		},
		{
			in: []Var{
				MkVar("esc", "foo\\bar"),
				MkVar("root", "/var/lib/docfacade"),
				MkVar("p1", "{root}/store.db"),
				MkVar("p2", "file:{root}"),
				MkVar("pesc", "p_{esc}_s"),
			},
			probe: map[string]string{
				"p1":   "/var/lib/docfacade/store.db",
				"p2":   "file:/var/lib/docfacade",
				"pesc": "p_foo\\bar_s",
			},
		},
	}

	for i, test := range tests {
		t.Run(fmt.Sprintf("test_%02d", i), func(t *testing.T) {
			env := Load(test.in...)
			for k, v := range test.probe {
				res, ok := env.String(k)
				testx.AssertEqual(t, true, ok)
				testx.AssertEqual(t, v, res)
			}
		})
	}
}

func TestEnvTyped(t *testing.T) {
	tx := testx.NewTx(t)
	env := Env{
		"DOCFACADE_LISTEN":  ":8080",
		"DOCFACADE_SSL":     "yes",
		"DOCFACADE_DEBUG":   true,
		"DOCFACADE_LIMIT":   "25",
		"DOCFACADE_TIMEOUT": "3s",
		"OTHER":             "x",
	}

	sub := env.Sub("DOCFACADE_")
	tx.AssertEqual(5, len(sub))
	tx.AssertEqual(":8080", sub.StringOrDefault("LISTEN", ""))
	tx.AssertEqual(true, sub.BoolOrDefault("SSL", false))
	tx.AssertEqual(true, sub.BoolOrDefault("DEBUG", false))
	tx.AssertEqual(false, sub.BoolOrDefault("MISSING", false))
	tx.AssertEqual(25, sub.IntOrDefault("LIMIT", 10))
	tx.AssertEqual(10, sub.IntOrDefault("LISTEN", 10))
	tx.AssertEqual(3*time.Second, sub.DurationOrDefault("TIMEOUT", time.Second))
	tx.AssertEqual(time.Second, sub.DurationOrDefault("LISTEN", time.Second))

	_, ok := env.Bool("OTHER")
	tx.AssertEqual(false, ok)
}
