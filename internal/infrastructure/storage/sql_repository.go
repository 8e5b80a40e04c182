package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/ports"
)

var (
	// ErrUnavailable is returned by writes when no database connection exists.
	ErrUnavailable = errors.New("database not available")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

var documentColumns = []string{
	"id",
	"file_name",
	"content_type",
	"file_size",
	"upload_date",
	"file_path",
	"status",
	"enhancement_enabled",
	"spell_check_enabled",
	"layout_analysis_enabled",
	"ocr_mode",
	"output_format",
	"confidence_threshold",
	"original_text",
	"processed_text",
	"processing_summary",
}

// SQLRepository persists users and documents in a relational database. A nil
// *sql.DB puts the repository into unavailable mode: reads come back empty
// and writes fail with ErrUnavailable.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	sq      sq.StatementBuilderType
}

var _ ports.Store = (*SQLRepository)(nil)

// NewSQLRepository wires a sql.DB implementation.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect, sq: dialect.builder()}
}

// Open connects to dsn, verifies the connection and creates missing tables.
func Open(ctx context.Context, dsn string) (*SQLRepository, error) {
	dialect, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// each sqlite connection to :memory: is its own database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	repo := NewSQLRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Available reports whether a connection is configured.
func (r *SQLRepository) Available() bool {
	return r.db != nil
}

// Migrate creates the users and documents tables if they do not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return ErrUnavailable
	}
	for _, stmt := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", r.dialect.Name, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// GetUser returns the user with id or nil when absent.
func (r *SQLRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return r.findUser(ctx, sq.Eq{"id": id})
}

// GetUserByUsername looks a user up by exact username.
func (r *SQLRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findUser(ctx, sq.Eq{"username": username})
}

func (r *SQLRepository) findUser(ctx context.Context, where sq.Eq) (*domain.User, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := r.sq.Select("id", "username", "password").From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	var user domain.User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Username, &user.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// CreateUser stores a user under the next id.
func (r *SQLRepository) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	if r.db == nil {
		return nil, ErrUnavailable
	}

	query, args, err := r.sq.Insert("users").
		Columns("username", "password").
		Values(in.Username, in.Password).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user insert: %w", err)
	}

	user := domain.User{Username: in.Username, Password: in.Password}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID); err != nil {
		if r.dialect.isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

// GetDocument returns the document with id or nil when absent.
func (r *SQLRepository) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := r.sq.Select(documentColumns...).From("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document query: %w", err)
	}

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document %d: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns documents in creation (id) order.
func (r *SQLRepository) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	if r.db == nil {
		return []domain.Document{}, nil
	}

	query, args, err := r.sq.Select(documentColumns...).From("documents").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build documents query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan document: %w", err)
		}
		result = append(result, *doc)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// CreateDocument stores a document with status uploaded.
func (r *SQLRepository) CreateDocument(ctx context.Context, in domain.NewDocument) (*domain.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if r.db == nil {
		return nil, ErrUnavailable
	}

	in = in.WithDefaults()
	query, args, err := r.sq.Insert("documents").
		Columns(
			"file_name", "content_type", "file_size", "upload_date", "file_path", "status",
			"enhancement_enabled", "spell_check_enabled", "layout_analysis_enabled",
			"ocr_mode", "output_format", "confidence_threshold",
		).
		Values(
			in.FileName, in.ContentType, in.FileSize, in.UploadDate, nullString(in.FilePath), string(in.Status),
			in.EnhancementEnabled, in.SpellCheckEnabled, in.LayoutAnalysisEnabled,
			string(in.OCRMode), string(in.OutputFormat), in.ConfidenceThreshold,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	doc := in.Build(id)
	return &doc, nil
}

// UpdateDocument applies the set fields of patch and returns the result.
func (r *SQLRepository) UpdateDocument(ctx context.Context, id int64, patch domain.DocumentPatch) (*domain.Document, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if r.db == nil {
		return nil, nil
	}

	set, err := patchColumns(patch)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return r.GetDocument(ctx, id)
	}

	query, args, err := r.sq.Update("documents").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update document %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update document %d: %w", id, err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetDocument(ctx, id)
}

// DeleteDocument removes the document and reports whether it existed.
func (r *SQLRepository) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	query, args, err := r.sq.Delete("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build document delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete document %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete document %d: %w", id, err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status, mode, format string
	var filePath, originalText, processedText, rawSum sql.NullString

	err := row.Scan(
		&doc.ID,
		&doc.FileName,
		&doc.ContentType,
		&doc.FileSize,
		&doc.UploadDate,
		&filePath,
		&status,
		&doc.EnhancementEnabled,
		&doc.SpellCheckEnabled,
		&doc.LayoutAnalysisEnabled,
		&mode,
		&format,
		&doc.ConfidenceThreshold,
		&originalText,
		&processedText,
		&rawSum,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = domain.DocumentStatus(status)
	doc.OCRMode = domain.OCRMode(mode)
	doc.OutputFormat = domain.OutputFormat(format)
	doc.FilePath = stringPtr(filePath)
	doc.OriginalText = stringPtr(originalText)
	doc.ProcessedText = stringPtr(processedText)

	if rawSum.Valid && rawSum.String != "" {
		var summary domain.ProcessingResult
		if err := json.Unmarshal([]byte(rawSum.String), &summary); err != nil {
			return nil, fmt.Errorf("decode processing summary: %w", err)
		}
		doc.ProcessingSummary = &summary
	}

	return &doc, nil
}

func patchColumns(p domain.DocumentPatch) (map[string]any, error) {
	set := map[string]any{}
	if p.FileName != nil {
		set["file_name"] = *p.FileName
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.EnhancementEnabled != nil {
		set["enhancement_enabled"] = *p.EnhancementEnabled
	}
	if p.SpellCheckEnabled != nil {
		set["spell_check_enabled"] = *p.SpellCheckEnabled
	}
	if p.LayoutAnalysisEnabled != nil {
		set["layout_analysis_enabled"] = *p.LayoutAnalysisEnabled
	}
	if p.OCRMode != nil {
		set["ocr_mode"] = string(*p.OCRMode)
	}
	if p.OutputFormat != nil {
		set["output_format"] = string(*p.OutputFormat)
	}
	if p.ConfidenceThreshold != nil {
		set["confidence_threshold"] = *p.ConfidenceThreshold
	}
	if p.OriginalText != nil {
		set["original_text"] = *p.OriginalText
	}
	if p.ProcessedText != nil {
		set["processed_text"] = *p.ProcessedText
	}
	if p.ProcessingSummary != nil {
		raw, err := json.Marshal(p.ProcessingSummary)
		if err != nil {
			return nil, fmt.Errorf("encode processing summary: %w", err)
		}
		set["processing_summary"] = string(raw)
	}
	return set, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
