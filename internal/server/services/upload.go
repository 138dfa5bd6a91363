// Package services contains gateway business logic. UploadService relays a
// file to a storage node and records its metadata once a node accepted it.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/files"
	"github.com/google/uuid"
)

// ErrCommitFailed means the bytes reached a node but the record was not
// stored.
var ErrCommitFailed = errors.New("file record commit failed")

// Relayer is implemented by *relay.Relay.
type Relayer interface {
	Relay(ctx context.Context, sess *models.Session, body io.Reader, file *models.FileRecord) error
}

type UploadService struct {
	relay  Relayer
	repo   files.Repository
	logger logging.Logger
}

func NewUploadService(r Relayer, repo files.Repository, l logging.Logger) *UploadService {
	return &UploadService{relay: r, repo: repo, logger: l.With("module", "upload")}
}

// Upload relays body and commits file after the relay succeeded. A relay
// failure is returned unchanged and nothing is committed.
func (s *UploadService) Upload(ctx context.Context, sess *models.Session, body io.Reader, file *models.FileRecord) error {
	if err := s.relay.Relay(ctx, sess, body, file); err != nil {
		return err
	}

	if err := s.repo.Commit(ctx, file); err != nil {
		s.logger.Error(ctx, "file stored on backend but not recorded",
			"file_id", file.ID.String(), "name", file.FileName(), "error", err.Error())
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	s.logger.Info(ctx, "file recorded", "file_id", file.ID.String(), "name", file.FileName())
	return nil
}

func (s *UploadService) Get(ctx context.Context, id uuid.UUID) (*models.FileRecord, error) {
	return s.repo.Get(ctx, id)
}
