package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore reads documents and writes processing flags against the
// shared application database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens the document store. The documents table is owned by the
// surrounding application; no migration runs here.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, file_path, mime_type, office_id, case_id, folder_id,
		       is_ocr_processed, is_indexed, COALESCE(processing_error, '')
		FROM documents WHERE id = $1`, id)

	var (
		doc      Document
		caseID   sql.NullInt64
		folderID sql.NullInt64
	)
	err := row.Scan(&doc.ID, &doc.Title, &doc.FilePath, &doc.MimeType, &doc.OfficeID,
		&caseID, &folderID, &doc.OCRProcessed, &doc.Indexed, &doc.LastError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("document %d: %w", id, ErrDocumentNotFound)
		}
		return Document{}, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	if caseID.Valid {
		v := caseID.Int64
		doc.CaseID = &v
	}
	if folderID.Valid {
		v := folderID.Int64
		doc.FolderID = &v
	}
	return doc, nil
}

func (s *PostgresStore) SetFlags(ctx context.Context, id int64, update FlagUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if update.OCRProcessed != nil {
		add("is_ocr_processed", *update.OCRProcessed)
	}
	if update.Indexed != nil {
		add("is_indexed", *update.Indexed)
	}
	if update.Error != nil {
		add("processing_error", *update.Error)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update document %d flags: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %d: %w", id, ErrDocumentNotFound)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
