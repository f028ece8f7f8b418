package main

import (
	"context"

	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"satleds/pkg/config"
	"satleds/pkg/cue"
	"satleds/pkg/device/apa102"
	"satleds/pkg/device/virtual"
	"satleds/pkg/proto"
	"satleds/pkg/server"
)

var cfgPath = flag.String("config", "", "config file path")
var listen = flag.String("listen", "", "listen addr override")
var virt = flag.Bool("virtual", false, "log-only strip, no hardware")
var debug = flag.Bool("debug", false, "debug logging")

func main() {
	flag.Parse()

	fx.New(
		fx.Provide(
			loadConfig,
			newLogger,
			newStrip,
			newCues,
			newPlayer,
			newServer,
		),
		fx.Invoke(
			run,
		),
	).Run()
}

func loadConfig() (*config.Config, error) {
	c, err := config.Load(*cfgPath)
	if err != nil {
		return nil, err
	}

	if *listen != "" {
		c.Listen = *listen
	}
	c.Debug = c.Debug || *debug

	return c, nil
}

func newLogger(c *config.Config) (*zap.Logger, error) {
	if c.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newStrip(c *config.Config, logger *zap.Logger) (proto.Strip, error) {
	if *virt {
		return virtual.Mock(logger), nil
	}

	return apa102.New(proto.NewSPI(c.SPI.Dev), logger, apa102.Config{
		Count:      c.Leds,
		Brightness: c.Brightness,
		Order:      c.ColorOrder,
		SpeedHz:    c.SPI.SpeedHz,
	})
}

func newCues() (*cue.Bus, cue.Trigger) {
	bus := cue.NewBus()
	return bus, bus
}

func newPlayer(c *config.Config, bus *cue.Bus, logger *zap.Logger) (*cue.Player, error) {
	return cue.NewPlayer(bus, c.SoundsDir, logger, cue.WithCommand(c.Player))
}

func newServer(c *config.Config, strip proto.Strip, cues cue.Trigger, logger *zap.Logger) *server.Server {
	return server.New(c.Listen, strip, cues, logger)
}

func run(
	c *config.Config,
	strip proto.Strip,
	player *cue.Player,
	srv *server.Server,
	logger *zap.Logger,
	lifecycle fx.Lifecycle,
	shutdowner fx.Shutdowner,
) {
	var unsub func()

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			unsub = player.Start()

			if err := srv.Start(); err != nil {
				return err
			}

			go func() {
				if err, ok := <-srv.Err(); ok && err != nil {
					logger.With(zap.Error(err)).Error("hardware failure, shutting down")
					_ = shutdowner.Shutdown()
				}
			}()

			logger.With(zap.String("listen", c.Listen)).Info("listening")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop()
			if unsub != nil {
				unsub()
			}

			// Blank best-effort, then release the bus exactly once.
			strip.Fill(0, 0, 0)
			if err := strip.Show(); err != nil {
				logger.With(zap.Error(err)).Info("blank on shutdown failed")
			}
			return strip.Close()
		},
	})
}
