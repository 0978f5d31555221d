package main

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml.encode: %w", err)
	}
	return enc.Close()
}

func printCount(w io.Writer, n int, what string) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "# %d %s\n", n, what)
}

func printLine(w io.Writer, s string) {
	fmt.Fprintln(w, s)
}
