// Package files persists FileRecord metadata.
package files

import (
	"context"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// Commit inserts one record. CreatedBy defaults to the login bound in
	// ctx. A duplicate id yields common.ErrorAlreadyExists.
	Commit(ctx context.Context, file *models.FileRecord) error
	// Get returns common.ErrorNotFound for an unknown id.
	Get(ctx context.Context, id uuid.UUID) (*models.FileRecord, error)
}
