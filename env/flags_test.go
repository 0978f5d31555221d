package env

import (
	"testing"

	"github.com/mazzegi/docfacade/testx"
)

func TestFlags(t *testing.T) {
	tests := []struct {
		args     []string
		expFlags map[string]any
	}{
		{args: []string{"-foo=bar"}, expFlags: map[string]any{"foo": "bar"}},
		{args: []string{"--foo=bar"}, expFlags: map[string]any{"foo": "bar"}},
		{args: []string{"-foo", "bar"}, expFlags: map[string]any{"foo": "bar"}},
		{args: []string{"--foo", "bar"}, expFlags: map[string]any{"foo": "bar"}},
		{args: []string{"-bbar"}, expFlags: map[string]any{"bbar": true}},
		{args: []string{"--bbar"}, expFlags: map[string]any{"bbar": true}},
		{
			args:     []string{"--bbar", "-foo=baz", "--wop", "22"},
			expFlags: map[string]any{"bbar": true, "foo": "baz", "wop": "22"},
		},
		{
			args:     []string{"--wop", "22", "-foo=baz", "vamos", "--bbar"},
			expFlags: map[string]any{"bbar": true, "foo": "baz", "wop": "22"},
		},
		{
			args:     []string{"get", "cities", "SF", "--", "-x"},
			expFlags: map[string]any{},
		},
		{
			args:     []string{"-", "--replace", "--", "--ignored", "v"},
			expFlags: map[string]any{"replace": true},
		},
	}
	for i, test := range tests {
		testx.RunIth(i, t, func(t *testing.T) {
			testx.AssertEqual(t, test.expFlags, ParseFlags(test.args))
		})
	}
}
