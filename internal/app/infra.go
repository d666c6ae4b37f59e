package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tenac92/LEXIS-sub001/internal/config"
	"github.com/Tenac92/LEXIS-sub001/internal/db"
	"github.com/Tenac92/LEXIS-sub001/internal/geo"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"
	"github.com/Tenac92/LEXIS-sub001/internal/redis"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client
	Geo   geo.Lookup

	closeGeo func() error
}

func setupInfra(ctx context.Context, cfg *config.Config) (*Infra, error) {
	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	logger.Info("database ready", nil)

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	logger.Info("redis ready", nil)

	infra := &Infra{
		DB:       database,
		Redis:    redisClient,
		closeGeo: func() error { return nil },
	}

	if !cfg.GeoEnabled {
		logger.Warn("geo enforcement disabled", nil)
		return infra, nil
	}

	lookup, closeGeo, err := geo.Open(geo.Source{
		MaxMindDB: cfg.GeoMaxMindDB,
		HTTPURL:   cfg.GeoHTTPURL,
	})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	infra.closeGeo = closeGeo

	if cfg.GeoCacheTTL > 0 {
		lookup = geo.NewCachedLookup(lookup, redisClient.Client, cfg.GeoCacheTTL)
	}
	infra.Geo = lookup

	logger.Info("geo lookup ready", map[string]any{
		"countries": cfg.AllowedCountries(),
		"maxmind":   cfg.GeoMaxMindDB != "",
	})

	return infra, nil
}

// Check pings the stores an upgrade depends on. Geo lookups are not checked
// here; a failing lookup denies the upgrade on its own.
func (i *Infra) Check(ctx context.Context) error {
	var errs []error
	if err := i.DB.PingContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("db: %w", err))
	}
	if err := i.Redis.Healthy(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (i *Infra) Close() error {
	return errors.Join(
		i.closeGeo(),
		i.Redis.Close(),
		i.DB.Close(),
	)
}
