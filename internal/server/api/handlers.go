package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/relay"
	"github.com/dmitrijs2005/gophrelay/internal/server/security"
	"github.com/dmitrijs2005/gophrelay/internal/server/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type uploadParams struct {
	Name string `query:"name" validate:"required,max=255"`
	// Ext may be empty for files without an extension but must be present.
	Ext  string `query:"ext" validate:"max=32"`
	Size string `query:"size"`
}

func (s *Server) ping(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// upload handles POST /upload?s=&name=&ext=[&size=]. The raw request body is
// relayed to a storage node and the record is committed afterwards. The
// answer is the new record id as plain text.
func (s *Server) upload(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()

	raw := c.QueryParam(common.SessionParam)
	id, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn(ctx, "Invalid user session ID", "session_id", raw)
		return BadRequestError("invalid session id")
	}

	sess, err := s.authority.FindSession(ctx, id)
	if errors.Is(err, common.ErrSessionNotFound) {
		s.logger.Warn(ctx, "User session does not exist", "session_id", id.String())
		return UnauthorizedError("unauthorized")
	}
	if err != nil {
		return fmt.Errorf("find session %s: %w", id, err)
	}

	if !security.Bind(ctx, sess) {
		return errors.New("no security context installed")
	}
	defer security.Clear(ctx)

	if req.Body == nil || req.Body == http.NoBody {
		return BadRequestError("request body is required")
	}

	var p uploadParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
		return BadRequestError("invalid query parameters")
	}
	if err := s.validate.Struct(&p); err != nil {
		s.logger.Error(ctx, "file name or extension missing", "login", sess.User.Login, "error", err.Error())
		return BadRequestError("invalid file parameters", friendlyValidationErrors(err))
	}
	if _, ok := c.QueryParams()["ext"]; !ok {
		s.logger.Error(ctx, "file name or extension missing", "login", sess.User.Login)
		return BadRequestError("invalid file parameters", map[string]string{"ext": "This field is required"})
	}

	var size *int64
	if p.Size != "" {
		n, err := strconv.ParseInt(p.Size, 10, 64)
		if err != nil {
			return BadRequestError("invalid size", err.Error())
		}
		size = &n
	}

	file := models.NewFileRecord(p.Name, p.Ext, size, s.now())
	if err := s.uploads.Upload(ctx, sess, req.Body, file); err != nil {
		return s.uploadFailed(c, file, err)
	}

	return c.String(http.StatusOK, file.ID.String())
}

func (s *Server) uploadFailed(c echo.Context, file *models.FileRecord, err error) error {
	ctx := c.Request().Context()

	if relay.IsInterrupted(err) {
		s.logger.Warn(ctx, "upload interrupted", "file_id", file.ID.String(), "error", err.Error())
		return c.NoContent(relay.StatusClientClosedRequest)
	}
	if errors.Is(err, services.ErrCommitFailed) {
		return InternalServerError("file could not be recorded")
	}

	s.logger.Error(ctx, "upload failed", "file_id", file.ID.String(), "error", err.Error())
	return NewErrorResponse(relay.StatusOf(err), "upload failed")
}

func (s *Server) getFile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestError("invalid file id")
	}

	file, err := s.uploads.Get(c.Request().Context(), id)
	if errors.Is(err, common.ErrorNotFound) {
		return NotFoundError("file not found")
	}
	if err != nil {
		return fmt.Errorf("get file %s: %w", id, err)
	}

	return c.JSON(http.StatusOK, file)
}
