package postgresengine

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

var errCustomTableNames = errors.New("the embedded schema only covers the default table names")

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the five mirror tables with their default names.
func Schema() string {
	return schemaSQL
}

// EnsureSchema creates the mirror tables with their default names if they do not exist yet.
// It is meant for development setups, production databases are expected to be migrated separately.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	if g.tables != DefaultTableNames() {
		return errors.Join(mirror.ErrWritingFailed, errCustomTableNames)
	}

	for _, statement := range strings.Split(schemaSQL, ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}

		if _, err := g.db.Exec(ctx, statement); err != nil {
			g.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, statement)
			return errors.Join(mirror.ErrWritingFailed, err)
		}
	}

	g.logOperation(ctx, "schema ensured")

	return nil
}
