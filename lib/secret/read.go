// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoTerminal is returned by ReadTerminal when stdin is not a
// terminal.
var ErrNoTerminal = errors.New("secret: no terminal available for an interactive prompt")

// ReadFile reads a secret from path, or the first line of stdin when
// path is "-".
func ReadFile(path string) (*Buffer, error) {
	if path == "-" {
		return readLine(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fromTrimmed(data)
}

// ReadTerminal writes prompt to stderr and reads a secret from the
// terminal on stdin without echo.
func ReadTerminal(prompt string) (*Buffer, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoTerminal
	}
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("secret: reading from terminal: %w", err)
	}
	return fromTrimmed(data)
}

func readLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("secret: reading stdin: %w", err)
		}
		return nil, errors.New("secret: stdin is empty")
	}
	return fromTrimmed(scanner.Bytes())
}

// fromTrimmed moves data without surrounding whitespace into a Buffer
// and zeroes all of data.
func fromTrimmed(data []byte) (*Buffer, error) {
	defer Zero(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("secret: secret is empty")
	}
	return NewFromBytes(trimmed)
}
