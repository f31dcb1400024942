// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewObjectKey(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		key := NewObjectKey()
		assert.Len(t, key, KeyLength)
		assert.True(t, IsValidObjectKey(key), key)
		seen[key] = struct{}{}
	}
	// коллизии на 1000 ключей практически невозможны
	assert.Greater(t, len(seen), 990)
}

func TestIsValidObjectKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"AAAAAAAA", true},
		{"23456789", true},
		{"AAAAAAA", false},
		{"AAAAAAAAA", false},
		{"AAAAAAA0", false},
		{"aaaaaaaa", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidObjectKey(tt.key), tt.key)
	}
}

func TestUUIDGenerator_Generate(t *testing.T) {
	g := NewUUIDGenerator()
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
