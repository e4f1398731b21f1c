package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/model"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RecordStore persists finished runs.
type RecordStore interface {
	SaveRecord(ctx context.Context, runID string, checkType model.CheckType, status string, rec model.Record) error
}

// AnalyzeAndRecord runs Analyze and stores the outcome. Failed runs are
// stored with status failed and zero scores. A storage error is logged and
// does not change the returned result.
func (e *Engine) AnalyzeAndRecord(ctx context.Context, store RecordStore, raw string, checkType model.CheckType) (*model.AnalysisResult, error) {
	start := time.Now()
	res, err := e.Analyze(ctx, raw, checkType)
	elapsed := time.Since(start).Milliseconds()

	status := StatusCompleted
	runID := ""
	var rec model.Record
	if err != nil {
		status = StatusFailed
		rec = model.NewRecord(&model.AnalysisResult{}, elapsed)
	} else {
		runID = res.RunID
		rec = model.NewRecord(res, elapsed)
	}

	// the caller's context may already be cancelled; persist regardless
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if saveErr := store.SaveRecord(saveCtx, runID, checkType, status, rec); saveErr != nil {
		e.logger.Error("failed to persist analysis record", zap.String("run_id", runID), zap.Error(saveErr))
		e.metrics.CheckPersisted("error")
	} else {
		e.metrics.CheckPersisted(status)
	}
	return res, err
}
