package vecindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"lexvault/internal/embeddings"
)

var indexNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// PostgresIndex stores vectors in a pgvector table, one table per index name.
type PostgresIndex struct {
	db        *sql.DB
	table     string
	dim       int
	batchSize int
}

// NewPostgres opens a pgvector-backed index. dim is the embedding model's
// vector dimension and is fixed for the life of the table. batchSize bounds
// upsert request size; values <= 0 use 100.
func NewPostgres(dsn, indexName string, dim, batchSize int) (*PostgresIndex, error) {
	if !indexNameRe.MatchString(indexName) {
		return nil, fmt.Errorf("invalid index name %q", indexName)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	idx := &PostgresIndex{db: db, table: "vectors_" + indexName, dim: dim, batchSize: batchSize}
	if err := idx.migrate(context.Background()); err != nil {
		return nil, err
	}
	return idx, nil
}

func (p *PostgresIndex) migrate(ctx context.Context) error {
	// Advisory lock keeps concurrent services from racing the migration.
	const lockID = 764501238

	var acquired bool
	if err := p.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = p.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	if _, err := p.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d),
			document_id BIGINT NOT NULL,
			chunk_index INT NOT NULL,
			total_chunks INT NOT NULL,
			office_id BIGINT NOT NULL,
			case_id BIGINT,
			mime_type TEXT,
			title TEXT,
			content TEXT NOT NULL
		);`, p.table, p.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id);`, p.table, p.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_office_idx ON %s (office_id);`, p.table, p.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = 100);`, p.table, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Upsert writes records in bounded batches, replacing any prior record with
// the same id.
func (p *PostgresIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Vector) != p.dim {
			return fmt.Errorf("%w: record %s has dimension %d, index has %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), p.dim)
		}
	}

	for start := 0; start < len(records); start += p.batchSize {
		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := p.upsertBatch(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresIndex) upsertBatch(ctx context.Context, records []Record) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, document_id, chunk_index, total_chunks, office_id, case_id, mime_type, title, content)
		VALUES ($1, $2::vector, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			embedding = excluded.embedding,
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			total_chunks = excluded.total_chunks,
			office_id = excluded.office_id,
			case_id = excluded.case_id,
			mime_type = excluded.mime_type,
			title = excluded.title,
			content = excluded.content`, p.table)

	for _, r := range records {
		_, err := tx.ExecContext(ctx, stmt,
			r.ID, vectorToString(r.Vector),
			r.Meta.DocumentID, r.Meta.ChunkIndex, r.Meta.TotalChunks,
			r.Meta.OfficeID, nullableID(r.Meta.CaseID), r.Meta.MimeType, r.Meta.Title, r.Meta.Content)
		if err != nil {
			return p.wrapErr(fmt.Errorf("upsert %s failed: %w", r.ID, err))
		}
	}
	return tx.Commit()
}

// Query returns up to topK records ordered by descending cosine similarity,
// restricted by the conjunctive filter.
func (p *PostgresIndex) Query(ctx context.Context, vector embeddings.Vector, topK int, filter Filter) ([]Match, error) {
	if len(vector) != p.dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index has %d",
			ErrDimensionMismatch, len(vector), p.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT
			id, document_id, chunk_index, total_chunks, office_id, case_id, mime_type, title, content,
			1 - (embedding <=> $1::vector) AS score
		FROM %s
		WHERE office_id = $2
		  AND ($3::bigint IS NULL OR case_id = $3)
		  AND (cardinality($4::bigint[]) = 0 OR document_id = ANY($4))
		ORDER BY embedding <=> $1::vector
		LIMIT $5`, p.table)

	docIDs := filter.DocumentIDs
	if docIDs == nil {
		docIDs = []int64{}
	}
	rows, err := p.db.QueryContext(ctx, query,
		vectorToString(vector), filter.OfficeID, nullableID(filter.CaseID), pq.Array(docIDs), topK)
	if err != nil {
		return nil, p.wrapErr(fmt.Errorf("similarity query failed: %w", err))
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m      Match
			caseID sql.NullInt64
			mime   sql.NullString
			title  sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Meta.DocumentID, &m.Meta.ChunkIndex, &m.Meta.TotalChunks,
			&m.Meta.OfficeID, &caseID, &mime, &title, &m.Meta.Content, &m.Score); err != nil {
			return nil, err
		}
		if caseID.Valid {
			v := caseID.Int64
			m.Meta.CaseID = &v
		}
		m.Meta.MimeType = mime.String
		m.Meta.Title = title.String
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteByIDs removes the given vector ids.
func (p *PostgresIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, p.table)
	if _, err := p.db.ExecContext(ctx, stmt, pq.Array(ids)); err != nil {
		return p.wrapErr(fmt.Errorf("delete by ids failed: %w", err))
	}
	return nil
}

// DeleteByDocument removes every chunk of one document in a single call.
func (p *PostgresIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, p.table)
	if _, err := p.db.ExecContext(ctx, stmt, documentID); err != nil {
		return p.wrapErr(fmt.Errorf("delete document %d failed: %w", documentID, err))
	}
	return nil
}

// Close releases the connection pool.
func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

// wrapErr maps a missing table onto ErrIndexNotFound so callers can tell a
// configuration failure from an empty result.
func (p *PostgresIndex) wrapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" { // undefined_table
		return fmt.Errorf("%w: table %s: %v", ErrIndexNotFound, p.table, err)
	}
	return err
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// vectorToString converts a vector to pgvector text format: "[0.1,0.2,...]"
func vectorToString(v embeddings.Vector) string {
	if len(v) == 0 {
		return "[]"
	}
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
