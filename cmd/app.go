package cmd

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/webitel/eee-runtime/config"
	"github.com/webitel/eee-runtime/internal/adapter/pubsub"
	"github.com/webitel/eee-runtime/internal/admin"
	"github.com/webitel/eee-runtime/internal/node"
	"github.com/webitel/eee-runtime/internal/telemetry"
)

// NewApp assembles the EEE node the same way the teacher's cmd/fx.go
// assembles its service: fx.Provide constructors for config/logger/node,
// fx.Invoke lifecycle hooks to start/stop the optional admin and AMQP
// adapters.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			provideLogger,
			provideTelemetry,
			provideNode,
		),
		fx.Invoke(registerTelemetryShutdown),
		fx.Invoke(registerAdmin),
		fx.Invoke(registerAMQPBridge),
	)
}

func provideLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// provideTelemetry builds the OTel log pipeline used to bridge the
// admin/adapter layer's slog output into traces; the core node never
// depends on this.
func provideTelemetry() (*telemetry.Provider, error) {
	return telemetry.NewProvider()
}

func registerTelemetryShutdown(lc fx.Lifecycle, tp *telemetry.Provider) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
}

func provideNode(cfg *config.Config, log *slog.Logger) (*node.Node, error) {
	return node.New(cfg.BroadcastBufferSize, log)
}

func registerAdmin(lc fx.Lifecycle, cfg *config.Config, n *node.Node, tp *telemetry.Provider) {
	if !cfg.Admin.Enabled {
		return
	}

	log := tp.Logger("eee-admin")
	srv := admin.NewServer(n.Supervisor(), cfg.Admin.Addr, cfg.Admin.RecentEffectsPerEnvironment, log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			srv.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

func registerAMQPBridge(lc fx.Lifecycle, cfg *config.Config, n *node.Node, tp *telemetry.Provider) error {
	if !cfg.AMQP.Enabled {
		return nil
	}

	log := tp.Logger("eee-pubsub")

	bridge, err := pubsub.NewBridge(n.Supervisor(), cfg.AMQP.URI, cfg.AMQP.Environments, log)
	if err != nil {
		return err
	}

	dispatcher, err := pubsub.NewDispatcher(cfg.AMQP.URI, log)
	if err != nil {
		return err
	}
	for _, envName := range cfg.AMQP.Environments {
		env, ok := n.Supervisor().Environment(envName)
		if !ok {
			continue
		}
		dispatcher.Watch(envName, env.Subscribe())
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := bridge.Run(context.Background()); err != nil {
					log.Error("amqp bridge exited", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			dispatcher.Close()
			return bridge.Close()
		},
	})

	return nil
}
