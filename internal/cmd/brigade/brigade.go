// Package brigade parses gateway command flags and starts the runtime.
package brigade

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/teamforge/brigade/internal/gateway"
	"github.com/teamforge/brigade/internal/gateway/ops"
	entrypoint "github.com/teamforge/brigade/internal/platform/cmd"
	"github.com/teamforge/brigade/internal/platform/natsutil"
	"github.com/teamforge/brigade/internal/platform/timeouts"
	"github.com/teamforge/brigade/internal/storage/sqlite"
	"github.com/teamforge/brigade/internal/telemetry"
)

// Config holds brigade command configuration.
type Config struct {
	NATSURL string `env:"BRIGADE_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	// NATSTimeout falls back to timeouts.NATSConnect when unset.
	NATSTimeout  time.Duration `env:"BRIGADE_NATS_TIMEOUT"`
	DBPath       string        `env:"BRIGADE_DB_PATH" envDefault:"brigade.db"`
	OpsAddr      string        `env:"BRIGADE_OPS_ADDR" envDefault:":8080"`
	HistoryDepth int           `env:"BRIGADE_HISTORY_DEPTH" envDefault:"3"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "The NATS server URL")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.OpsAddr, "ops-addr", cfg.OpsAddr, "The operational HTTP listen address")
	fs.IntVar(&cfg.HistoryDepth, "history-depth", cfg.HistoryDepth, "The number of retained rotation rounds")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) connectTimeout() time.Duration {
	if c.NATSTimeout > 0 {
		return c.NATSTimeout
	}
	return timeouts.NATSConnect
}

// Run starts the brigade gateway service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBrigade, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		client, err := natsutil.ConnectWithRetry(cfg.NATSURL, cfg.connectTimeout())
		if err != nil {
			return err
		}
		defer client.Close()

		g := gateway.New(
			gateway.Stores{Channels: store, Sessions: store, History: store},
			natsutil.JetStreamPublisher{JS: client.JS},
			telemetry.NewEmitter(store),
			cfg.HistoryDepth,
		)

		opsServer := &http.Server{
			Addr:              cfg.OpsAddr,
			Handler:           ops.NewHandler(store, store).Router(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		}
		go func() {
			log.Printf("ops server listening at %s", cfg.OpsAddr)
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("ops server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			defer cancel()
			if err := opsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("ops server shutdown: %v", err)
			}
		}()

		log.Printf("gateway consuming %s", natsutil.CommandSubjectPrefix+">")
		return g.Run(ctx, client.JS)
	})
}
