package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/filex"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/node/storage"
	"github.com/dmitrijs2005/gophrelay/internal/server/api"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/relay"
	"github.com/dmitrijs2005/gophrelay/internal/server/security"
	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

// sniffLen is how much of the file mimetype inspects.
const sniffLen = 3072

// BlobStore is implemented by *storage.S3Store.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
}

type Handler struct {
	authn    *auth.Authenticator
	store    BlobStore
	secret   []byte
	spoolDir string
	logger   logging.Logger
}

func NewHandler(authn *auth.Authenticator, store BlobStore, relaySecret []byte, spoolDir string, l logging.Logger) *Handler {
	return &Handler{
		authn:    authn,
		store:    store,
		secret:   relaySecret,
		spoolDir: spoolDir,
		logger:   l.With("module", "node_upload"),
	}
}

// Upload handles POST /upload?s=&f= from the gateway. The body is spooled to
// disk, sniffed and written to the bucket. A taken key answers 409, a full
// disk 507 and an unavailable bucket 503 so the gateway can fail over.
func (h *Handler) Upload(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()

	sid := c.QueryParam(common.SessionParam)
	ok, err := h.authn.Begin(ctx, sid)
	if err != nil {
		return err
	}
	if !ok {
		return api.UnauthorizedError("unauthorized")
	}
	defer h.authn.End(ctx)

	file, err := models.ParseFileParam(c.QueryParam(common.FileParam))
	if err != nil {
		h.logger.Warn(ctx, "bad file parameter", "error", err.Error())
		return api.BadRequestError("invalid file parameter", err.Error())
	}

	if len(h.secret) > 0 {
		if err := auth.VerifyRelayToken(bearerToken(req), h.secret, sid, file.ID.String()); err != nil {
			h.logger.Warn(ctx, "relay token rejected", "file_id", file.ID.String(), "error", err.Error())
			return api.UnauthorizedError("unauthorized")
		}
	}

	tmp, err := os.CreateTemp(h.spoolDir, "node-*.part")
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}
	defer filex.RemoveQuietly(tmp)

	size, err := io.Copy(tmp, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, syscall.ENOSPC):
			h.logger.Error(ctx, "spool disk full", "file_id", file.ID.String())
			return api.NewErrorResponse(http.StatusInsufficientStorage, "insufficient storage")
		case ctx.Err() != nil:
			return c.NoContent(relay.StatusClientClosedRequest)
		default:
			return api.BadRequestError("unable to read request body")
		}
	}
	if file.Size != nil && *file.Size != size {
		h.logger.Warn(ctx, "declared size differs", "file_id", file.ID.String(), "declared", *file.Size, "received", size)
	}

	contentType, err := sniff(tmp)
	if err != nil {
		return fmt.Errorf("sniff %s: %w", file.ID, err)
	}

	key := storage.ObjectKey(file)
	if err := h.store.Put(ctx, key, tmp, size, contentType); err != nil {
		if errors.Is(err, storage.ErrObjectExists) {
			return api.ConflictError("file already exists")
		}
		h.logger.Error(ctx, "unable to store file", "key", key, "error", err.Error())
		return api.NewErrorResponse(http.StatusServiceUnavailable, "storage unavailable")
	}

	h.logger.Info(ctx, "file stored", "key", key, "bytes", size, "content_type", contentType,
		"login", security.CurrentLogin(ctx))
	return c.String(http.StatusOK, file.ID.String())
}

// sniff detects the content type of f and rewinds it.
func sniff(f *os.File) (string, error) {
	head := make([]byte, sniffLen)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mimetype.Detect(head[:n]).String(), nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
