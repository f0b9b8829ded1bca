package main

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/library-chain-mirror/config"
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/memengine"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/postgresengine"
)

// openGateway opens the gateway selected by the adapter setting and ensures the schema exists.
// The returned func releases the database connections.
func openGateway(ctx context.Context, cfg config.Config, obs *observability) (mirror.Gateway, func(), error) {
	options := obs.gatewayOptions()

	switch cfg.DBAdapter {
	case config.AdapterPGX:
		pool, err := config.NewPGXPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}

		gateway, err := postgresengine.NewGatewayFromPGXPool(pool, options...)

		return withSchema(ctx, gateway, err, pool.Close)

	case config.AdapterSQL:
		db, err := config.NewSQLDB(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}

		gateway, err := postgresengine.NewGatewayFromSQLDB(db, options...)

		return withSchema(ctx, gateway, err, func() { _ = db.Close() })

	case config.AdapterSQLX:
		db, err := config.NewSQLX(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}

		gateway, err := postgresengine.NewGatewayFromSQLX(db, options...)

		return withSchema(ctx, gateway, err, func() { _ = db.Close() })

	case config.AdapterMemory:
		return memengine.NewStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("%w: unsupported db adapter %q", config.ErrInvalidConfig, cfg.DBAdapter)
	}
}

func withSchema(ctx context.Context, gateway *postgresengine.Gateway, err error, closeDB func()) (mirror.Gateway, func(), error) {
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	if schemaErr := gateway.EnsureSchema(ctx); schemaErr != nil {
		closeDB()
		return nil, nil, schemaErr
	}

	return gateway, closeDB, nil
}
