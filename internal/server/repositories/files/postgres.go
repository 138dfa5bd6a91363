package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/dbx"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func createdBy(ctx context.Context, file *models.FileRecord) string {
	if file.CreatedBy != "" {
		return file.CreatedBy
	}
	return security.CurrentLogin(ctx)
}

func (r *PostgresRepository) Commit(ctx context.Context, file *models.FileRecord) error {
	query := `
		INSERT INTO files (id, name, extension, size, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	res, err := r.db.ExecContext(ctx, query,
		file.ID, file.Name, file.Extension, file.Size, file.CreatedAt, createdBy(ctx, file))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.FileRecord, error) {
	query := `SELECT id, name, extension, size, created_at, created_by FROM files WHERE id=$1`

	var (
		f    models.FileRecord
		size sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.Name, &f.Extension, &size, &f.CreatedAt, &f.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	if size.Valid {
		f.Size = &size.Int64
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}
