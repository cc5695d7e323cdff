// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_Valid(t *testing.T) {
	doc, err := ParseDocument([]byte(`
name: shop
services:
  web:
    image: nginx
  db:
    image: postgres
`), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "shop", doc.Name)
	assert.False(t, doc.Disabled)
	assert.Equal(t, []string{"db", "web"}, doc.Services, "service names must be sorted")
}

func TestParseDocument_DisabledMarker(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		disabled bool
	}{
		{"true", "true", true},
		{"yes-style one", "1", true},
		{"false", "false", false},
		{"non-boolean string ignored", "banana", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(
				"x-disabled: "+tt.value+"\nservices:\n  web:\n    image: nginx\n"), DefaultLimits())
			require.NoError(t, err)
			assert.Equal(t, tt.disabled, doc.Disabled)
		})
	}
}

func TestParseDocument_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"scalar root", "just a string", ErrNotMapping},
		{"sequence root", "- a\n- b", ErrNotMapping},
		{"no services key", "name: x\nvolumes: {}", ErrNoServices},
		{"empty services mapping", "services: {}", ErrEmptyServices},
		{"services is a sequence", "services:\n  - web", ErrEmptyServices},
		{"services is a scalar", "services: web", ErrEmptyServices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.input), DefaultLimits())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestParseDocument_MalformedYAML(t *testing.T) {
	_, err := ParseDocument([]byte("services: [unclosed"), DefaultLimits())
	require.Error(t, err)
}

func TestParseDocument_SizeLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxBytes = 64

	payload := "services:\n  web:\n    image: nginx\n"
	pad := strings.Repeat("#", int(limits.MaxBytes)-len(payload))
	atLimit := []byte(payload + pad)
	require.Len(t, atLimit, int(limits.MaxBytes))

	t.Run("exactly at limit accepted", func(t *testing.T) {
		_, err := ParseDocument(atLimit, limits)
		require.NoError(t, err)
	})

	t.Run("one byte over rejected", func(t *testing.T) {
		_, err := ParseDocument(append(atLimit, '#'), limits)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTooLarge))
	})
}

func TestParseDocument_NestingDepth(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxNestingDepth = 4

	t.Run("within limit", func(t *testing.T) {
		_, err := ParseDocument([]byte(`
services:
  web:
    image: nginx
`), limits)
		require.NoError(t, err)
	})

	t.Run("beyond limit", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("services:\n  web:\n    image: nginx\ndeep:\n")
		indent := "  "
		for i := 0; i < 6; i++ {
			b.WriteString(indent + "k:\n")
			indent += "  "
		}
		b.WriteString(indent + "leaf: 1\n")

		_, err := ParseDocument([]byte(b.String()), limits)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTooDeep))
	})
}

func TestParseDocument_InterpolationPlaceholdersPassThrough(t *testing.T) {
	doc, err := ParseDocument([]byte(`
services:
  web:
    image: ${REGISTRY}/nginx:${TAG}
    environment:
      - MODE=${MODE:-dev}
`), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, doc.Services)
}

func TestParseDocument_NonScalarKeysSkipped(t *testing.T) {
	// A complex mapping key at the root must not panic or shadow real keys.
	doc, err := ParseDocument([]byte(`
? [a, b]
: ignored
services:
  web:
    image: nginx
`), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, doc.Services)
}
