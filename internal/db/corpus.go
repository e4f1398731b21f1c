package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/model"
)

// lookupChunk keeps IN lists under sqlite's variable limit.
const lookupChunk = 500

// CorpusStore is the sqlite corpus backend. Fingerprints are stored as the
// int64 bit pattern of the uint64 hash.
type CorpusStore struct {
	conn *sql.DB
}

func NewCorpusStore(conn *sql.DB) *CorpusStore {
	return &CorpusStore{conn: conn}
}

func (s *CorpusStore) Add(ctx context.Context, src corpus.Source) error {
	if src.ID == "" {
		return fmt.Errorf("source id is required")
	}
	hashes, err := corpus.Fingerprints(ctx, src)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_fingerprint WHERE source_id = ?`, src.ID); err != nil {
		return fmt.Errorf("clear fingerprints: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpus_source(id, url, title, author, type, text) VALUES(?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET url=excluded.url, title=excluded.title, author=excluded.author, type=excluded.type, text=excluded.text`,
		src.ID, src.URL, src.Title, src.Author, string(src.Type), src.Text,
	); err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO corpus_fingerprint(hash, source_id) VALUES(?,?)`)
	if err != nil {
		return fmt.Errorf("prepare fingerprint insert: %w", err)
	}
	defer stmt.Close()
	for _, h := range hashes {
		if _, err := stmt.ExecContext(ctx, int64(h), src.ID); err != nil {
			return fmt.Errorf("insert fingerprint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *CorpusStore) Lookup(ctx context.Context, hash uint64) ([]string, error) {
	hits, err := s.LookupBatch(ctx, []uint64{hash})
	if err != nil {
		return nil, err
	}
	return hits[hash], nil
}

func (s *CorpusStore) LookupBatch(ctx context.Context, hashes []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string)
	for from := 0; from < len(hashes); from += lookupChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		to := min(from+lookupChunk, len(hashes))
		keys := make([]int64, 0, to-from)
		for _, h := range hashes[from:to] {
			keys = append(keys, int64(h))
		}

		query, args, err := sq.Select("hash", "source_id").
			From("corpus_fingerprint").
			Where(sq.Eq{"hash": keys}).
			OrderBy("hash", "source_id").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build lookup query: %w", err)
		}
		if err := s.collect(ctx, query, args, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *CorpusStore) collect(ctx context.Context, query string, args []any, out map[uint64][]string) error {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var hash int64
		var id string
		if err := rows.Scan(&hash, &id); err != nil {
			return fmt.Errorf("scan fingerprint: %w", err)
		}
		out[uint64(hash)] = append(out[uint64(hash)], id)
	}
	return rows.Err()
}

func (s *CorpusStore) Source(ctx context.Context, id string) (*corpus.Source, error) {
	query, args, err := sq.Select("id", "url", "title", "author", "type", "text").
		From("corpus_source").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build source query: %w", err)
	}
	var (
		src                      corpus.Source
		url, title, author, kind sql.NullString
	)
	err = s.conn.QueryRowContext(ctx, query, args...).Scan(&src.ID, &url, &title, &author, &kind, &src.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", corpus.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.URL, src.Title, src.Author = url.String, title.String, author.String
	src.Type = model.SourceType(kind.String)
	return &src, nil
}

func (s *CorpusStore) Stats(ctx context.Context) (corpus.Stats, error) {
	var st corpus.Stats
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_source`).Scan(&st.Sources); err != nil {
		return st, fmt.Errorf("count sources: %w", err)
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(DISTINCT hash) FROM corpus_fingerprint`).Scan(&st.Fingerprints); err != nil {
		return st, fmt.Errorf("count fingerprints: %w", err)
	}
	return st, nil
}
