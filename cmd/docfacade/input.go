package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// readArg returns the content of the file for "@file" args, otherwise the arg itself.
func readArg(arg string) ([]byte, error) {
	if file, ok := strings.CutPrefix(arg, "@"); ok {
		bs, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", file, err)
		}
		return bs, nil
	}
	return []byte(arg), nil
}

// parseFields decodes a JSON object. Comments and trailing commas are allowed.
func parseFields(arg string) (store.Fields, error) {
	bs, err := readArg(arg)
	if err != nil {
		return nil, err
	}
	std, err := hujson.Standardize(bs)
	if err != nil {
		return nil, fmt.Errorf("hujson.standardize: %w", err)
	}
	var fs store.Fields
	if err := json.Unmarshal(std, &fs); err != nil {
		return nil, fmt.Errorf("json.unmarshal document: %w", err)
	}
	if fs == nil {
		return nil, fmt.Errorf("document must be a json object")
	}
	return fs, nil
}

// parseValue reads a JSON value and falls back to the plain string.
func parseValue(arg string) any {
	std, err := hujson.Standardize([]byte(arg))
	if err != nil {
		return arg
	}
	var v any
	if err := json.Unmarshal(std, &v); err != nil {
		return arg
	}
	return v
}

// parseFilters reads a filter set from yaml or json, a single clause or a list.
func parseFilters(arg string) (query.FilterSet, error) {
	bs, err := readArg(arg)
	if err != nil {
		return nil, err
	}
	var fs query.FilterSet
	if err := yaml.Unmarshal(bs, &fs); err != nil {
		return nil, fmt.Errorf("yaml.unmarshal filters: %w", err)
	}
	return fs, nil
}
