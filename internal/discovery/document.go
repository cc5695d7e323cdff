// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Structural validation failures. All of them are per-file conditions: the
// offending file is skipped and the scan continues.
var (
	// ErrTooLarge is returned when the file exceeds the size limit.
	ErrTooLarge = errors.New("definition file exceeds size limit")

	// ErrNotMapping is returned when the document root is not a mapping.
	ErrNotMapping = errors.New("document root is not a mapping")

	// ErrNoServices is returned when the document has no services key.
	ErrNoServices = errors.New("document has no services key")

	// ErrEmptyServices is returned when services is empty or not a mapping.
	ErrEmptyServices = errors.New("services is empty or not a mapping")

	// ErrTooDeep is returned when nesting exceeds the depth bound.
	ErrTooDeep = errors.New("document nesting exceeds depth limit")

	// ErrParseTimeout is returned when parsing exceeds the wall-clock budget.
	ErrParseTimeout = errors.New("document parse timed out")
)

// Limits bounds the structural validator against hostile input.
type Limits struct {
	// MaxBytes is the largest document the validator will parse.
	MaxBytes int64

	// MaxNestingDepth caps node nesting to resist YAML bombing.
	MaxNestingDepth int

	// ParseTimeout is the wall-clock budget for a single parse.
	ParseTimeout time.Duration
}

// DefaultLimits returns the limits used when the caller has no config.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:        1 << 20,
		MaxNestingDepth: 10,
		ParseTimeout:    2 * time.Second,
	}
}

// Document is the typed shape extracted from a structurally valid definition.
// Only the keys this core interprets are surfaced; everything else in the
// file is the engine's business, including ${VAR} interpolation placeholders,
// which pass through parsing untouched.
type Document struct {
	// Name is the explicit root-level name field, or "" if absent.
	Name string

	// Disabled reflects a truthy root-level x-disabled marker.
	Disabled bool

	// Services holds the key set of the services mapping, sorted.
	Services []string
}

// ParseDocument decides whether raw bytes constitute a minimally valid
// project definition and extracts its shape.
//
// Pure function over its inputs: no filesystem or process side effects.
// Rejection reasons are distinguishable via errors.Is against the package
// sentinels.
func ParseDocument(data []byte, limits Limits) (*Document, error) {
	if int64(len(data)) > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	root, err := parseWithTimeout(data, limits.ParseTimeout)
	if err != nil {
		return nil, err
	}

	// yaml.v3 wraps the document in a DocumentNode.
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrNotMapping
	}
	body := root.Content[0]
	if body.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}

	if err := checkDepth(body, 1, limits.MaxNestingDepth); err != nil {
		return nil, err
	}

	doc := &Document{}
	var services *yaml.Node

	// Mapping content alternates key, value.
	for i := 0; i+1 < len(body.Content); i += 2 {
		key, value := body.Content[i], body.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			continue
		}
		switch key.Value {
		case "name":
			if value.Kind == yaml.ScalarNode {
				doc.Name = value.Value
			}
		case "x-disabled":
			if value.Kind == yaml.ScalarNode {
				if b, err := strconv.ParseBool(value.Value); err == nil {
					doc.Disabled = b
				}
			}
		case "services":
			services = value
		}
	}

	if services == nil {
		return nil, ErrNoServices
	}
	if services.Kind != yaml.MappingNode || len(services.Content) == 0 {
		return nil, ErrEmptyServices
	}

	for i := 0; i+1 < len(services.Content); i += 2 {
		if key := services.Content[i]; key.Kind == yaml.ScalarNode {
			doc.Services = append(doc.Services, key.Value)
		}
	}
	if len(doc.Services) == 0 {
		return nil, ErrEmptyServices
	}
	sort.Strings(doc.Services)

	return doc, nil
}

// parseWithTimeout runs the YAML parser under a wall-clock budget. The parser
// itself is not cancellable, so a timed-out parse is abandoned to finish (or
// fail) in the background; the size limit keeps that bounded.
func parseWithTimeout(data []byte, timeout time.Duration) (*yaml.Node, error) {
	type parsed struct {
		node *yaml.Node
		err  error
	}
	done := make(chan parsed, 1)

	go func() {
		var node yaml.Node
		err := yaml.Unmarshal(data, &node)
		done <- parsed{&node, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p := <-done:
		if p.err != nil {
			return nil, fmt.Errorf("parse document: %w", p.err)
		}
		return p.node, nil
	case <-timer.C:
		return nil, ErrParseTimeout
	}
}

// checkDepth rejects documents nested deeper than maxDepth levels.
func checkDepth(node *yaml.Node, depth, maxDepth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: depth %d", ErrTooDeep, depth)
	}
	for _, child := range node.Content {
		if child.Kind == yaml.MappingNode || child.Kind == yaml.SequenceNode {
			if err := checkDepth(child, depth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}
