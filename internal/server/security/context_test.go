package security

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestBindClearCurrent(t *testing.T) {
	ctx := NewContext(context.Background())
	sess := &models.Session{User: models.User{Login: "alice"}}

	assert.Nil(t, Current(ctx))
	assert.True(t, Bind(ctx, sess))
	assert.Same(t, sess, Current(ctx))
	assert.Equal(t, "alice", CurrentLogin(ctx))

	Clear(ctx)
	assert.Nil(t, Current(ctx))
	assert.Empty(t, CurrentLogin(ctx))
}

func TestNoSlot(t *testing.T) {
	ctx := context.Background()

	assert.False(t, Bind(ctx, &models.Session{}))
	assert.Nil(t, Current(ctx))
	Clear(ctx)
}

func TestSlotsAreIsolated(t *testing.T) {
	base := context.Background()
	a := NewContext(base)
	b := NewContext(base)

	Bind(a, &models.Session{User: models.User{Login: "a"}})

	assert.Equal(t, "a", CurrentLogin(a))
	assert.Nil(t, Current(b))
}

func TestChildContextSeesBinding(t *testing.T) {
	ctx := NewContext(context.Background())
	child, cancel := context.WithCancel(ctx)
	defer cancel()

	Bind(ctx, &models.Session{User: models.User{Login: "bob"}})
	assert.Equal(t, "bob", CurrentLogin(child))

	Clear(child)
	assert.Nil(t, Current(ctx))
}

func TestConcurrentRequests(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := NewContext(context.Background())
			sess := &models.Session{}
			Bind(ctx, sess)
			assert.Same(t, sess, Current(ctx))
			Clear(ctx)
			assert.Nil(t, Current(ctx))
		}()
	}
	wg.Wait()
}
