package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/darved2305/VeriTextAI/internal/model"
)

// SaveReport writes res as reports/<run id>.json and returns the path.
func SaveReport(base string, res *model.AnalysisResult) (string, error) {
	name := sanitizeRunID(res.RunID)
	if name == "" {
		return "", fmt.Errorf("report has no run id")
	}
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(base, "reports", name+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func LoadReport(base, runID string) (*model.AnalysisResult, error) {
	name := sanitizeRunID(runID)
	if name == "" {
		return nil, fmt.Errorf("invalid run id %q", runID)
	}
	raw, err := os.ReadFile(filepath.Join(base, "reports", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var res model.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &res, nil
}

func sanitizeRunID(id string) string {
	base := filepath.Base(strings.TrimSpace(id))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.ReplaceAll(base, "..", "")
}
