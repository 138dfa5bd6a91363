// Package models defines the data shared by the gateway and the storage nodes.
package models

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrMalformedFileParam = errors.New("malformed file parameter")

// FileRecord is the metadata persisted for an uploaded file once a backend
// node has accepted its bytes. It is built once per upload and never changed.
type FileRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	// Size is nil when the client did not declare one.
	Size      *int64    `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// CreatedBy is the login of the session user, filled at commit time.
	CreatedBy string `json:"created_by,omitempty"`
}

// NewFileRecord assigns a fresh id. createdAt is truncated to milliseconds so
// the record survives a round trip through URLParam unchanged.
func NewFileRecord(name, ext string, size *int64, createdAt time.Time) *FileRecord {
	return &FileRecord{
		ID:        uuid.New(),
		Name:      name,
		Extension: ext,
		Size:      size,
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
	}
}

// FileName is name.ext, or just name when there is no extension.
func (f *FileRecord) FileName() string {
	if f.Extension == "" {
		return f.Name
	}
	return f.Name + "." + f.Extension
}

// URLParam encodes the descriptive fields for the f parameter of a node
// request: id,name,ext,size,createdAtMillis. Components are query-escaped so
// commas inside names survive.
func (f *FileRecord) URLParam() string {
	size := ""
	if f.Size != nil {
		size = strconv.FormatInt(*f.Size, 10)
	}
	parts := []string{
		f.ID.String(),
		url.QueryEscape(f.Name),
		url.QueryEscape(f.Extension),
		size,
		strconv.FormatInt(f.CreatedAt.UnixMilli(), 10),
	}
	return strings.Join(parts, ",")
}

// ParseFileParam reverses URLParam.
func ParseFileParam(s string) (*FileRecord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: want 5 components, got %d", ErrMalformedFileParam, len(parts))
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrMalformedFileParam, err)
	}
	name, err := url.QueryUnescape(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: name: %v", ErrMalformedFileParam, err)
	}
	ext, err := url.QueryUnescape(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: ext: %v", ErrMalformedFileParam, err)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrMalformedFileParam)
	}

	var size *int64
	if parts[3] != "" {
		v, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: size: %v", ErrMalformedFileParam, err)
		}
		size = &v
	}

	millis, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: created: %v", ErrMalformedFileParam, err)
	}

	return &FileRecord{
		ID:        id,
		Name:      name,
		Extension: ext,
		Size:      size,
		CreatedAt: time.UnixMilli(millis).UTC(),
	}, nil
}
