package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/darved2305/VeriTextAI/internal/model"
)

func TestEnsureAndSaveReport(t *testing.T) {
	base := filepath.Join(t.TempDir(), BaseDirName)
	root, err := Ensure(base)
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "reports")); err != nil {
		t.Fatalf("expected reports dir: %v", err)
	}
	if DBPath(root) != filepath.Join(base, DBFileName) {
		t.Fatalf("unexpected db path %s", DBPath(root))
	}

	res := &model.AnalysisResult{RunID: "run-42", CheckType: model.CheckPlagiarism, OverallScore: 12.5}
	path, err := SaveReport(root, res)
	if err != nil {
		t.Fatalf("save report: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected report at %s: %v", path, err)
	}

	loaded, err := LoadReport(root, "run-42")
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.OverallScore != 12.5 || loaded.CheckType != model.CheckPlagiarism {
		t.Fatalf("unexpected report %+v", loaded)
	}
}

func TestSaveReportRejectsTraversal(t *testing.T) {
	root, err := EnsureAt(t.TempDir())
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	path, err := SaveReport(root, &model.AnalysisResult{RunID: "../../escape"})
	if err != nil {
		t.Fatalf("save report: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, "reports") {
		t.Fatalf("report escaped reports dir: %s", path)
	}
	if _, err := SaveReport(root, &model.AnalysisResult{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}
