package app

import (
	"context"

	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/database/seeders"
	"github.com/shashiranjanraj/zepto/internal/server"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

// Serve seeds an empty store when AUTO_SEED allows it, then serves the
// API on APP_PORT until ctx ends or the process is signalled.
func (a *Application) Serve(ctx context.Context) error {
	if config.AutoSeed() {
		if err := seeders.RunAll(ctx, a.Store, logWriter{}); err != nil {
			return err
		}
	}
	return server.Run(ctx, a.Handler(), server.Options{
		Addr:            ":" + config.AppPort(),
		ShutdownTimeout: config.ShutdownTimeout(),
	})
}

// logWriter routes seeder progress lines into the structured log.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logger.Debug("seeders", "output", string(p))
	return len(p), nil
}
