package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS plagiarism_check (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    check_type TEXT NOT NULL,
    status TEXT NOT NULL,
    overall_score REAL,
    ai_score REAL,
    paraphrase_score REAL,
    originality_score REAL,
    word_count INTEGER,
    sentence_count INTEGER,
    source_count INTEGER,
    flagged_sections INTEGER,
    processing_time INTEGER,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS matched_source (
    id INTEGER PRIMARY KEY,
    check_id INTEGER NOT NULL REFERENCES plagiarism_check(id),
    source_id TEXT NOT NULL,
    source_url TEXT,
    source_title TEXT,
    source_author TEXT,
    source_type TEXT,
    match_percentage REAL NOT NULL,
    matched_text TEXT,
    start_position INTEGER,
    end_position INTEGER,
    severity TEXT
);

CREATE TABLE IF NOT EXISTS flagged_section (
    id INTEGER PRIMARY KEY,
    check_id INTEGER NOT NULL REFERENCES plagiarism_check(id),
    section_type TEXT NOT NULL,
    text TEXT NOT NULL,
    start_position INTEGER NOT NULL,
    end_position INTEGER NOT NULL,
    confidence REAL NOT NULL,
    severity TEXT,
    explanation TEXT,
    matched_source_id INTEGER REFERENCES matched_source(id)
);

CREATE TABLE IF NOT EXISTS corpus_source (
    id TEXT PRIMARY KEY,
    url TEXT,
    title TEXT,
    author TEXT,
    type TEXT,
    text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS corpus_fingerprint (
    hash INTEGER NOT NULL,
    source_id TEXT NOT NULL REFERENCES corpus_source(id),
    PRIMARY KEY (hash, source_id)
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_corpus_fingerprint_source ON corpus_fingerprint(source_id);
`

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
