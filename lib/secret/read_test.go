// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFile(t *testing.T) {
	tempDir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", "opensesame", "opensesame"},
		{"trailing newline", "opensesame\n", "opensesame"},
		{"surrounding whitespace", "  opensesame \t\n", "opensesame"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(tempDir, test.name)
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatalf("writing test file: %v", err)
			}
			buffer, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			defer buffer.Close()
			if buffer.String() != test.want {
				t.Errorf("ReadFile() = %q, want %q", buffer.String(), test.want)
			}
		})
	}
}

func TestReadFileErrors(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a missing file")
	}
	for _, content := range []string{"", "  \n\t\n"} {
		path := filepath.Join(t.TempDir(), "secret")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("writing test file: %v", err)
		}
		if _, err := ReadFile(path); err == nil {
			t.Errorf("expected error for content %q", content)
		}
	}
}

func TestReadLine(t *testing.T) {
	buffer, err := readLine(strings.NewReader(" first \nsecond\n"))
	if err != nil {
		t.Fatalf("readLine() error: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "first" {
		t.Errorf("readLine() = %q, want first", buffer.String())
	}
	if _, err := readLine(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}
