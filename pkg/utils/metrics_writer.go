/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer.go
Description: Utility for writing replay results to a metrics directory.
Each result lands in a per-kind subdirectory under a timestamped, session-tagged name
so successive sessions never overwrite each other.
*/

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteMetricsResult writes result as indented JSON to dir/kind and returns the file path
func WriteMetricsResult(dir string, kind string, session string, result interface{}) (string, error) {
	metricsDir := filepath.Join(dir, kind)
	if err := os.MkdirAll(metricsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}

	// 2026-06-11_01-30-00_replay_3f2a9c1e.json
	if len(session) > 8 {
		session = session[:8]
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filePath := filepath.Join(metricsDir, fmt.Sprintf("%s_%s_%s.json", timestamp, kind, session))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}

	return filePath, nil
}
