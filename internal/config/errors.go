package config

import (
	"fmt"
	"strings"
)

// ConfigurationError describes a configuration source that could not be read
// or parsed.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`  // Full path to the file that caused the error
	FileName  string `json:"fileName"`  // Base name of the file
	Source    string `json:"source"`    // "file" or "env"
	ErrorType string `json:"errorType"` // io, parse
	Message   string `json:"message"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %s", ce.Source, ce.ErrorType, ce.FileName, ce.Message)
}

// DetailedError returns a multi-line description including the full path.
func (ce ConfigurationError) DetailedError() string {
	parts := []string{
		fmt.Sprintf("Configuration Error in %s: %s", ce.Source, ce.FileName),
		fmt.Sprintf("  File: %s", ce.FilePath),
		fmt.Sprintf("  Type: %s", ce.ErrorType),
		fmt.Sprintf("  Error: %s", ce.Message),
	}
	return strings.Join(parts, "\n")
}

// NewConfigurationError creates a new configuration error with basic information
func NewConfigurationError(filePath, fileName, source, errorType, message string) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		FileName:  fileName,
		Source:    source,
		ErrorType: errorType,
		Message:   message,
	}
}
