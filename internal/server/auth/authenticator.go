// Package auth gates requests on a valid session and signs gateway to node
// requests.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/security"
	"github.com/dmitrijs2005/gophrelay/internal/server/sessions"
	goerrors "github.com/go-errors/errors"
	"github.com/google/uuid"
)

// PermissionAPIEnabled must be granted to a session for Begin to succeed.
const PermissionAPIEnabled = "api.enabled"

type Authenticator struct {
	authority  sessions.Authority
	credential string
	permission string
	logger     logging.Logger
}

func NewAuthenticator(authority sessions.Authority, trustedCredential string, l logging.Logger) *Authenticator {
	return &Authenticator{
		authority:  authority,
		credential: trustedCredential,
		permission: PermissionAPIEnabled,
		logger:     l.With("module", "authenticator"),
	}
}

// Begin validates rawSessionID and binds the session to the security slot in
// ctx. It returns false without an error for malformed, unknown or
// unauthorized sessions. A rejected trusted credential is returned as an
// error wrapping common.ErrConfigurationFatal with a stack attached; callers
// must abort rather than answer 401.
func (a *Authenticator) Begin(ctx context.Context, rawSessionID string) (bool, error) {
	id, err := uuid.Parse(rawSessionID)
	if err != nil {
		a.logger.Warn(ctx, "Invalid user session ID", "session_id", rawSessionID)
		return false, nil
	}

	sess, err := a.authority.FindSessionTrusted(ctx, a.credential, id)
	if err != nil {
		if errors.Is(err, common.ErrConfigurationFatal) {
			return false, goerrors.WrapPrefix(err, "unable to login with trusted client credential", 0)
		}
		return false, fmt.Errorf("find session %s: %w", id, err)
	}
	if sess == nil {
		a.logger.Warn(ctx, "User session does not exist", "session_id", id.String())
		return false, nil
	}
	if !sess.IsPermitted(a.permission) {
		a.logger.Warn(ctx, "User is not allowed to use the API", "login", sess.User.Login, "permission", a.permission)
		return false, nil
	}

	if !security.Bind(ctx, sess) {
		return false, errors.New("no security context installed")
	}
	return true, nil
}

// End clears the security slot. Call it on every exit path after a
// successful Begin.
func (a *Authenticator) End(ctx context.Context) {
	security.Clear(ctx)
}

// Guard runs fn inside Begin/End. An unauthenticated caller gets
// common.ErrorUnauthorized and fn is not called.
func (a *Authenticator) Guard(ctx context.Context, rawSessionID string, fn func(ctx context.Context) error) error {
	ok, err := a.Begin(ctx, rawSessionID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	defer a.End(ctx)

	return fn(ctx)
}
