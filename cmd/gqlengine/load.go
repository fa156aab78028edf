package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	directive "github.com/hanpama/gqlengine/internal/directive"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// loadSchema merges the SDL files into one schema with the where
// directives registered, and builds it.
func loadSchema(paths []string) (*schema.Schema, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schema files given")
	}
	sch := directive.Register(schema.NewSchema(""))
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		if err := sch.LoadSDL(p, string(src)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	if err := sch.Build(); err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

// loadData reads the root value from a JSON or YAML document. An empty path
// yields an empty object.
func loadData(path string) (any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	var root any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := jsoniter.NewDecoder(bytes.NewReader(src))
		dec.UseNumber()
		err = dec.Decode(&root)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(src, &root)
	default:
		return nil, fmt.Errorf("data file %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return root, nil
}
