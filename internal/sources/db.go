package sources

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stacklok/synonym-exporter/internal/synonym"
)

// Querier is the subset of pgxpool.Pool used by the database source
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listSynonymsSQL = `
SELECT word, synonyms, type, langcode, active
FROM synonyms
WHERE active
  AND ($1 = '' OR type = $1)
  AND ($2 = '' OR langcode = $2)
  AND ($3 = 'none'
       OR ($3 = 'nospace' AND btrim(word) NOT LIKE '% %')
       OR ($3 = 'onlyspace' AND btrim(word) LIKE '% %'))
ORDER BY sid`

const hashSynonymsSQL = `
SELECT sid, word, synonyms, type, langcode, active, changed
FROM synonyms
ORDER BY sid`

// dbRecordSource reads records from the synonyms table
type dbRecordSource struct {
	db Querier
}

// NewDBRecordSource creates a source reading the synonyms table through db
func NewDBRecordSource(db Querier) RecordSource {
	return &dbRecordSource{db: db}
}

type synonymRow struct {
	Word     string `db:"word"`
	Synonyms string `db:"synonyms"`
	Type     string `db:"type"`
	Langcode string `db:"langcode"`
	Active   bool   `db:"active"`
}

// ListSynonymRecords returns the active rows matching query ordered by sid
func (s *dbRecordSource) ListSynonymRecords(ctx context.Context, query Query) ([]synonym.Record, error) {
	kind := ""
	if query.Kind != "" && query.Kind != synonym.FilterAll {
		kind = string(query.Kind)
	}

	words := query.Words
	if words == "" {
		words = synonym.WordFilterNone
	}

	rows, err := s.db.Query(ctx, listSynonymsSQL, kind, query.Langcode, string(words))
	if err != nil {
		return nil, fmt.Errorf("failed to query synonyms: %w", err)
	}
	dbRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[synonymRow])
	if err != nil {
		return nil, fmt.Errorf("failed to read synonyms: %w", err)
	}

	records := make([]synonym.Record, 0, len(dbRows))
	for _, r := range dbRows {
		records = append(records, synonym.Record{
			Word:     r.Word,
			Synonyms: r.Synonyms,
			Kind:     synonym.Kind(r.Type),
			Langcode: r.Langcode,
			Active:   r.Active,
		})
	}
	return records, nil
}

// CurrentHash digests every row, including inactive ones, in sid order
func (s *dbRecordSource) CurrentHash(ctx context.Context) (string, error) {
	rows, err := s.db.Query(ctx, hashSynonymsSQL)
	if err != nil {
		return "", fmt.Errorf("failed to query synonyms: %w", err)
	}
	defer rows.Close()

	h := sha256.New()
	for rows.Next() {
		var (
			sid                            int64
			word, synonyms, kind, langcode string
			active                         bool
			changed                        time.Time
		)
		if err := rows.Scan(&sid, &word, &synonyms, &kind, &langcode, &active, &changed); err != nil {
			return "", fmt.Errorf("failed to read synonyms: %w", err)
		}
		fmt.Fprintf(h, "%d\x1f%s\x1f%s\x1f%s\x1f%s\x1f%t\x1f%d\x1e",
			sid, word, synonyms, kind, langcode, active, changed.UnixNano())
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to read synonyms: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
