// Package security holds input validation and request throttling for the
// public API surface.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// MaxMessageLength caps one chat message. Long pastes are fine;
	// multi-megabyte bodies are not.
	MaxMessageLength = 16 * 1024

	// MaxFilenameLength caps artifact filenames.
	MaxFilenameLength = 255
)

// ValidateMessage checks a user chat message before it reaches the engine.
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message must not be empty")
	}
	if len(message) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d bytes", MaxMessageLength)
	}
	if strings.Contains(message, "\x00") {
		return fmt.Errorf("message contains null bytes")
	}
	for _, r := range message {
		if r < 32 && r != '\n' && r != '\t' && r != '\r' {
			return fmt.Errorf("message contains control characters")
		}
	}
	return nil
}

// ValidateFilename checks an artifact filename. Names must be bare: no
// separators, no traversal, no hidden files.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("filename must not be empty")
	}
	if len(name) > MaxFilenameLength {
		return fmt.Errorf("filename exceeds %d characters", MaxFilenameLength)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("filename must not contain path separators or traversal")
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("filename must be a bare name")
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("filename must not be hidden")
	}
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("filename contains null bytes")
	}
	return nil
}
