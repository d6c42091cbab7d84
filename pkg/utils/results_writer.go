/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: results_writer.go
Description: Utility for writing profiling output to a results directory.
Handles timestamped, versioned and kind-specific subdirectory naming, and writes
JSON results and serialized analyzer states for later merging or inspection.
*/

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// timestampFormat names files so that they sort chronologically
const timestampFormat = "2006-01-02_15-04-05"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName turns a stream name into something usable in a file name
func SafeName(name string) string {
	if name == "" {
		return "unnamed"
	}
	return unsafeName.ReplaceAllString(name, "_")
}

// WriteResult writes a result as JSON under dir/kind with a timestamp and version
// e.g. results/profile/2024-06-11_01-30-00_profile_v1.0.0.json
func WriteResult(dir, kind, version string, result interface{}) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	filename := fmt.Sprintf("%s_%s_v%s.json", time.Now().Format(timestampFormat), SafeName(kind), version)
	return write(filepath.Join(dir, SafeName(kind)), filename, data)
}

// WriteState writes a serialized analyzer state under dir/states
func WriteState(dir, stream string, state []byte) (string, error) {
	filename := fmt.Sprintf("%s_%s.state.json", time.Now().Format(timestampFormat), SafeName(stream))
	return write(filepath.Join(dir, "states"), filename, state)
}

func write(dir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results file: %w", err)
	}
	return path, nil
}
