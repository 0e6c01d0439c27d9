// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Command gen-schema writes the identity service response schemas.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devroot/devroot/internal/gateway"
)

func main() {
	user, err := gateway.GenerateUserSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	outputs := []struct {
		name string
		data []byte
	}{
		{"user.schema.json", user},
		{"envelope.schema.json", gateway.EnvelopeSchema()},
	}

	if err := os.MkdirAll("schemas", 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	for _, out := range outputs {
		outPath := filepath.Join("schemas", out.name)
		if err := os.WriteFile(outPath, out.data, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
}
