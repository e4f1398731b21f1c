package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/darved2305/VeriTextAI/internal/model"
)

func openTestDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "veritext.db")
}

func TestSaveRecordAndGetCheck(t *testing.T) {
	dbPath := openTestDB(t)
	conn, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store := NewCheckStore(conn)

	rec := model.NewRecord(&model.AnalysisResult{
		OverallScore:     50,
		OriginalityScore: 50,
		WordCount:        12,
		SentenceCount:    2,
		MatchedSources: []model.MatchedSource{{
			SourceID:        "s1",
			Title:           "Reference",
			Type:            model.SourceWeb,
			MatchPercentage: 100,
			Severity:        model.SeverityCritical,
			MatchedText:     "the quick brown fox",
			StartPosition:   0,
			EndPosition:     19,
		}},
		FlaggedSections: []model.FlaggedSection{
			{Type: model.SectionAIGenerated, Text: "uniform", StartOffset: 20, EndOffset: 27, Confidence: 0.5, Severity: model.SeverityMedium},
			{Type: model.SectionPlagiarism, Text: "the quick brown fox", StartOffset: 0, EndOffset: 19, Confidence: 0.95, Severity: model.SeverityHigh, SourceRef: "s1"},
		},
	}, 7)

	ctx := context.Background()
	if err := store.SaveRecord(ctx, "run-1", model.CheckPlagiarism, "completed", rec); err != nil {
		t.Fatalf("save record: %v", err)
	}
	conn.Close()

	for table, want := range map[string]int{"plagiarism_check": 1, "matched_source": 1, "flagged_section": 2} {
		got, err := CountRows(dbPath, table)
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != want {
			t.Fatalf("expected %d rows in %s, got %d", want, table, got)
		}
	}

	conn, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer conn.Close()
	check, err := NewCheckStore(conn).GetCheck(ctx, "run-1")
	if err != nil {
		t.Fatalf("get check: %v", err)
	}
	if check.Status != "completed" || check.CheckType != "plagiarism" {
		t.Fatalf("unexpected check header: %+v", check)
	}
	if check.Record.OverallScore != 50 || check.Record.ProcessingTimeMs != 7 {
		t.Fatalf("unexpected scores: %+v", check.Record)
	}
	if len(check.Record.MatchedSources) != 1 || check.Record.MatchedSources[0].SourceID != "s1" {
		t.Fatalf("unexpected sources: %+v", check.Record.MatchedSources)
	}
	sections := check.Record.FlaggedSections
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Type != model.SectionPlagiarism || sections[0].SourceRef != "s1" {
		t.Fatalf("expected plagiarism section first with source ref, got %+v", sections[0])
	}
	if sections[1].SourceRef != "" {
		t.Fatalf("expected no source ref on ai section, got %q", sections[1].SourceRef)
	}
}

func TestSaveRecordAssignsRunID(t *testing.T) {
	dbPath := openTestDB(t)
	conn, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	store := NewCheckStore(conn)
	rec := model.NewRecord(&model.AnalysisResult{}, 1)
	for i := 0; i < 2; i++ {
		if err := store.SaveRecord(context.Background(), "", model.CheckAIDetection, "failed", rec); err != nil {
			t.Fatalf("save failed record: %v", err)
		}
	}
	count, err := countRowsConn(conn, "plagiarism_check")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 checks, got %d", count)
	}
}

func TestGetCheckNotFound(t *testing.T) {
	conn, err := Open(openTestDB(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	_, err = NewCheckStore(conn).GetCheck(context.Background(), "missing")
	if !errors.Is(err, ErrCheckNotFound) {
		t.Fatalf("expected ErrCheckNotFound, got %v", err)
	}
}
