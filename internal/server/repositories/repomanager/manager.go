// Package repomanager opens the file registry backend named by a DSN and
// vends its repository.
package repomanager

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/files"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Files() files.Repository
	Close(context.Context) error
}

// Open picks the backend by DSN scheme: mongodb:// and mongodb+srv:// select
// MongoDB, anything else is handed to the pgx driver.
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	if strings.HasPrefix(dsn, "mongodb://") || strings.HasPrefix(dsn, "mongodb+srv://") {
		m, err := NewMongoRepositoryManager(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	m, err := NewPostgresRepositoryManager(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return m, nil
}
