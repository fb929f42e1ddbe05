// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
)

// memguardInitOnce ensures memguard initialization happens only once.
var memguardInitOnce sync.Once

// initMemguard performs one-time memguard setup so that locked buffers are
// wiped if the process receives an interrupt.
func initMemguard() {
	memguardInitOnce.Do(func() {
		memguard.CatchInterrupt()
	})
}

// SecretKey holds a provider API key in a sealed memguard enclave.
//
// The plaintext key only exists in unlocked memory for the duration of a
// Reveal call; at rest it is encrypted in the enclave.
type SecretKey struct {
	enclave *memguard.Enclave
}

// LoadSecretKey reads an API key from the environment, falling back to a
// container secret file (Podman/Docker secrets mount).
//
// # Inputs
//
//   - envVar: Environment variable name, e.g. "GEMINI_API_KEY".
//   - secretPath: Secret file path, e.g. "/run/secrets/gemini_api_key".
//     May be empty to disable the file fallback.
//
// # Outputs
//
//   - *SecretKey: The sealed key.
//   - error: Non-nil if neither source yields a non-empty key.
func LoadSecretKey(envVar, secretPath string) (*SecretKey, error) {
	initMemguard()

	key := os.Getenv(envVar)
	if key == "" && secretPath != "" {
		raw, err := os.ReadFile(secretPath)
		if err == nil {
			key = strings.TrimSpace(string(raw))
			slog.Info("Read API key from secrets file", "path", secretPath)
		}
	}
	if key == "" {
		return nil, fmt.Errorf("%s not set and no secret found", envVar)
	}

	// NewEnclave wipes the source buffer.
	enclave := memguard.NewEnclave([]byte(key))
	return &SecretKey{enclave: enclave}, nil
}

// Reveal decrypts the key and returns a transient copy.
//
// The unlocked buffer is destroyed before returning; the returned string
// is an ordinary Go string and should be kept as short-lived as possible.
func (k *SecretKey) Reveal() (string, error) {
	buf, err := k.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}
