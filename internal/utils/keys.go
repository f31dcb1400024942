// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"github.com/google/uuid"
)

// KeyAlphabet is the set of characters object keys are drawn from. It omits
// characters that are easily confused (0, 1, O).
const KeyAlphabet = "23456789ABCDEFGHIJKLMNPQRSTUVWXYZ"

// KeyLength is the length of a generated object key.
const KeyLength = 8

// UUIDGenerator produces time-ordered identifiers for sync passes.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}

// NewObjectKey returns a random object key of KeyLength characters from
// KeyAlphabet. The random bits come from a version 4 UUID.
func NewObjectKey() string {
	id := uuid.New()

	key := make([]byte, KeyLength)
	for i := range key {
		// uuid.New sets version and variant bits in bytes 6 and 8, skip them
		b := id[i]
		if i >= 6 {
			b = id[i+3]
		}
		key[i] = KeyAlphabet[int(b)%len(KeyAlphabet)]
	}
	return string(key)
}

// IsValidObjectKey reports whether key looks like a generated object key.
func IsValidObjectKey(key string) bool {
	if len(key) != KeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		ok := false
		for j := 0; j < len(KeyAlphabet); j++ {
			if key[i] == KeyAlphabet[j] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
