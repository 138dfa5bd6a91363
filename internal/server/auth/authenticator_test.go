package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/security"
	goerrors "github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthority struct {
	sessions   map[uuid.UUID]*models.Session
	credential string
	err        error
}

func (f *fakeAuthority) FindSessionTrusted(_ context.Context, credential string, id uuid.UUID) (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if credential != f.credential {
		return nil, common.ErrConfigurationFatal
	}
	return f.sessions[id], nil
}

func (f *fakeAuthority) FindSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeAuthority) VerifyTrusted(_ context.Context, credential string) error {
	if credential != f.credential {
		return common.ErrConfigurationFatal
	}
	return nil
}

type warnLogger struct {
	logging.Nop
	mu    sync.Mutex
	warns []string
	args  [][]any
}

func (w *warnLogger) Warn(_ context.Context, msg string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warns = append(w.warns, msg)
	w.args = append(w.args, args)
}

func (w *warnLogger) With(...any) logging.Logger { return w }

func setup(t *testing.T) (*Authenticator, *fakeAuthority, *warnLogger, *models.Session, *models.Session) {
	t.Helper()
	allowed := &models.Session{ID: uuid.New(), User: models.User{Login: "alice"}, Permissions: []string{PermissionAPIEnabled}}
	denied := &models.Session{ID: uuid.New(), User: models.User{Login: "mallory"}}
	fa := &fakeAuthority{
		credential: "trusted",
		sessions:   map[uuid.UUID]*models.Session{allowed.ID: allowed, denied.ID: denied},
	}
	wl := &warnLogger{}
	return NewAuthenticator(fa, "trusted", wl), fa, wl, allowed, denied
}

func TestBegin_MalformedIDs(t *testing.T) {
	a, _, wl, _, _ := setup(t)

	for _, raw := range []string{"", "not-a-uuid", "1234", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz", "6f1c2c8e-2a5b-4a53-9d6a"} {
		ctx := security.NewContext(context.Background())
		ok, err := a.Begin(ctx, raw)
		require.NoError(t, err)
		assert.False(t, ok, raw)
		assert.Nil(t, security.Current(ctx), raw)
	}
	assert.Len(t, wl.warns, 5)
}

func TestBegin_UnknownSession(t *testing.T) {
	a, _, wl, _, _ := setup(t)
	ctx := security.NewContext(context.Background())

	ok, err := a.Begin(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, security.Current(ctx))
	assert.Equal(t, []string{"User session does not exist"}, wl.warns)
}

func TestBegin_MissingCapability(t *testing.T) {
	a, _, wl, _, denied := setup(t)
	ctx := security.NewContext(context.Background())

	ok, err := a.Begin(ctx, denied.ID.String())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, security.Current(ctx))
	require.Len(t, wl.args, 1)
	assert.Contains(t, wl.args[0], "mallory")
}

func TestBegin_SuccessAndEnd(t *testing.T) {
	a, _, _, allowed, _ := setup(t)
	ctx := security.NewContext(context.Background())

	ok, err := a.Begin(ctx, allowed.ID.String())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, allowed, security.Current(ctx))

	a.End(ctx)
	assert.Nil(t, security.Current(ctx))
}

func TestBegin_BadTrustedCredentialIsFatal(t *testing.T) {
	_, fa, _, allowed, _ := setup(t)
	a := NewAuthenticator(fa, "wrong", logging.Nop{})
	ctx := security.NewContext(context.Background())

	ok, err := a.Begin(ctx, allowed.ID.String())
	assert.False(t, ok)
	require.ErrorIs(t, err, common.ErrConfigurationFatal)

	var withStack *goerrors.Error
	require.ErrorAs(t, err, &withStack)
	assert.NotEmpty(t, withStack.ErrorStack())
	assert.Nil(t, security.Current(ctx))
}

func TestBegin_AuthorityError(t *testing.T) {
	a, fa, _, allowed, _ := setup(t)
	boom := errors.New("redis down")
	fa.err = boom

	ok, err := a.Begin(security.NewContext(context.Background()), allowed.ID.String())
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrConfigurationFatal)
}

func TestBegin_NoSlot(t *testing.T) {
	a, _, _, allowed, _ := setup(t)

	ok, err := a.Begin(context.Background(), allowed.ID.String())
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestGuard(t *testing.T) {
	a, _, _, allowed, _ := setup(t)

	t.Run("runs block with session bound", func(t *testing.T) {
		ctx := security.NewContext(context.Background())
		var seen *models.Session
		err := a.Guard(ctx, allowed.ID.String(), func(ctx context.Context) error {
			seen = security.Current(ctx)
			return nil
		})
		require.NoError(t, err)
		assert.Same(t, allowed, seen)
		assert.Nil(t, security.Current(ctx))
	})

	t.Run("block error still clears", func(t *testing.T) {
		ctx := security.NewContext(context.Background())
		boom := errors.New("boom")
		err := a.Guard(ctx, allowed.ID.String(), func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, security.Current(ctx))
	})

	t.Run("block panic still clears", func(t *testing.T) {
		ctx := security.NewContext(context.Background())
		assert.Panics(t, func() {
			_ = a.Guard(ctx, allowed.ID.String(), func(context.Context) error { panic("boom") })
		})
		assert.Nil(t, security.Current(ctx))
	})

	t.Run("unauthenticated skips block", func(t *testing.T) {
		ctx := security.NewContext(context.Background())
		called := false
		err := a.Guard(ctx, "nope", func(context.Context) error { called = true; return nil })
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
		assert.False(t, called)
	})
}
