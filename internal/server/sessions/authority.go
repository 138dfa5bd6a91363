// Package sessions looks up user sessions issued by the session authority.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/google/uuid"
)

// Authority is the session lookup surface the gateway and nodes consume.
type Authority interface {
	// FindSessionTrusted looks a session up on behalf of a trusted client.
	// It returns (nil, nil) when the session does not exist and an error
	// wrapping common.ErrConfigurationFatal when credential is rejected.
	FindSessionTrusted(ctx context.Context, credential string, id uuid.UUID) (*models.Session, error)

	// FindSession is the public lookup. It returns common.ErrSessionNotFound
	// when the session does not exist.
	FindSession(ctx context.Context, id uuid.UUID) (*models.Session, error)

	// VerifyTrusted checks credential without looking anything up. Binaries
	// call it at startup.
	VerifyTrusted(ctx context.Context, credential string) error
}
