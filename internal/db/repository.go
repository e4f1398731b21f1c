package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/darved2305/VeriTextAI/internal/model"
)

var ErrCheckNotFound = errors.New("check not found")

// CheckStore persists analysis records into the plagiarism_check,
// matched_source and flagged_section tables.
type CheckStore struct {
	conn *sql.DB
}

func NewCheckStore(conn *sql.DB) *CheckStore {
	return &CheckStore{conn: conn}
}

// Check is one stored run.
type Check struct {
	RunID     string       `json:"runId"`
	CheckType string       `json:"checkType"`
	Status    string       `json:"status"`
	CreatedAt string       `json:"createdAt"`
	Record    model.Record `json:"record"`
}

// SaveRecord writes rec in one transaction. An empty runID gets a fresh one,
// which is how failed runs without a result are stored.
func (s *CheckStore) SaveRecord(ctx context.Context, runID string, checkType model.CheckType, status string, rec model.Record) error {
	if runID == "" {
		runID = uuid.NewString()
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO plagiarism_check(run_id, check_type, status, overall_score, ai_score, paraphrase_score, originality_score, word_count, sentence_count, source_count, flagged_sections, processing_time)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		runID, string(checkType), status,
		rec.OverallScore, rec.AIScore, rec.ParaphraseScore, rec.OriginalityScore,
		rec.WordCount, rec.SentenceCount, rec.SourceCount, rec.FlaggedSectionCount, rec.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	checkID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("check last insert id: %w", err)
	}

	sourceRows := map[string]int64{}
	for _, m := range rec.MatchedSources {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO matched_source(check_id, source_id, source_url, source_title, source_author, source_type, match_percentage, matched_text, start_position, end_position, severity)
			 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			checkID, m.SourceID, m.URL, m.Title, m.Author, string(m.Type), m.MatchPercentage,
			m.MatchedText, m.StartPosition, m.EndPosition, string(m.Severity),
		)
		if err != nil {
			return fmt.Errorf("insert matched source: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("matched source last insert id: %w", err)
		}
		sourceRows[m.SourceID] = id
	}

	for _, f := range rec.FlaggedSections {
		var ref sql.NullInt64
		if id, ok := sourceRows[f.SourceRef]; ok && f.SourceRef != "" {
			ref = sql.NullInt64{Int64: id, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flagged_section(check_id, section_type, text, start_position, end_position, confidence, severity, explanation, matched_source_id)
			 VALUES(?,?,?,?,?,?,?,?,?)`,
			checkID, string(f.Type), f.Text, f.StartOffset, f.EndOffset, f.Confidence,
			string(f.Severity), f.Explanation, ref,
		); err != nil {
			return fmt.Errorf("insert flagged section: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetCheck loads a stored run with its sources and sections.
func (s *CheckStore) GetCheck(ctx context.Context, runID string) (*Check, error) {
	query, args, err := sq.Select(
		"id", "run_id", "check_type", "status", "created_at",
		"overall_score", "ai_score", "paraphrase_score", "originality_score",
		"word_count", "sentence_count", "source_count", "flagged_sections", "processing_time",
	).From("plagiarism_check").Where(sq.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build check query: %w", err)
	}

	var (
		checkID int64
		c       Check
		r       = &c.Record
	)
	err = s.conn.QueryRowContext(ctx, query, args...).Scan(
		&checkID, &c.RunID, &c.CheckType, &c.Status, &c.CreatedAt,
		&r.OverallScore, &r.AIScore, &r.ParaphraseScore, &r.OriginalityScore,
		&r.WordCount, &r.SentenceCount, &r.SourceCount, &r.FlaggedSectionCount, &r.ProcessingTimeMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCheckNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan check: %w", err)
	}

	if r.MatchedSources, err = s.matchedSources(ctx, checkID); err != nil {
		return nil, err
	}
	if r.FlaggedSections, err = s.flaggedSections(ctx, checkID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CheckStore) matchedSources(ctx context.Context, checkID int64) ([]model.MatchedSource, error) {
	query, args, err := sq.Select(
		"source_id", "source_url", "source_title", "source_author", "source_type",
		"match_percentage", "matched_text", "start_position", "end_position", "severity",
	).From("matched_source").Where(sq.Eq{"check_id": checkID}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build matched source query: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matched sources: %w", err)
	}
	defer rows.Close()

	out := []model.MatchedSource{}
	for rows.Next() {
		var m model.MatchedSource
		var typ, sev string
		if err := rows.Scan(&m.SourceID, &m.URL, &m.Title, &m.Author, &typ,
			&m.MatchPercentage, &m.MatchedText, &m.StartPosition, &m.EndPosition, &sev); err != nil {
			return nil, fmt.Errorf("scan matched source: %w", err)
		}
		m.Type, m.Severity = model.SourceType(typ), model.Severity(sev)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *CheckStore) flaggedSections(ctx context.Context, checkID int64) ([]model.FlaggedSection, error) {
	query, args, err := sq.Select(
		"f.section_type", "f.text", "f.start_position", "f.end_position",
		"f.confidence", "f.severity", "f.explanation", "COALESCE(m.source_id, '')",
	).From("flagged_section f").
		LeftJoin("matched_source m ON m.id = f.matched_source_id").
		Where(sq.Eq{"f.check_id": checkID}).
		OrderBy("f.start_position", "f.end_position", "f.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build flagged section query: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flagged sections: %w", err)
	}
	defer rows.Close()

	out := []model.FlaggedSection{}
	for rows.Next() {
		var f model.FlaggedSection
		var typ, sev string
		var explanation sql.NullString
		if err := rows.Scan(&typ, &f.Text, &f.StartOffset, &f.EndOffset,
			&f.Confidence, &sev, &explanation, &f.SourceRef); err != nil {
			return nil, fmt.Errorf("scan flagged section: %w", err)
		}
		f.Type, f.Severity, f.Explanation = model.SectionType(typ), model.Severity(sev), explanation.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func CountRows(dbPath, table string) (int, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return countRowsConn(conn, table)
}

func countRowsConn(conn *sql.DB, table string) (int, error) {
	row := conn.QueryRow(`SELECT COUNT(*) FROM ` + table)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}
