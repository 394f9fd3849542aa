package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/CoNote/internal/adapters/http"
	"github.com/dkeye/CoNote/internal/adapters/rtc"
	sig "github.com/dkeye/CoNote/internal/adapters/signal"
	"github.com/dkeye/CoNote/internal/adapters/theme"
	"github.com/dkeye/CoNote/internal/app"
	"github.com/dkeye/CoNote/internal/app/session"
	"github.com/dkeye/CoNote/internal/config"
	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.ApplyLogLevel(cfg.LogLevel)

	device := rtc.NewLocalDevice(rtc.DeviceOptions{
		Audio:         rtc.Availability(cfg.Devices.Audio),
		Video:         rtc.Availability(cfg.Devices.Video),
		AcquireDelay:  cfg.Devices.AcquireDelay,
		FrameInterval: cfg.Devices.FrameInterval,
	})
	cfg.Watch(func(next *config.Config) {
		lvl := config.ApplyLogLevel(next.LogLevel)
		device.SetAvailability(domain.KindAudio, rtc.Availability(next.Devices.Audio))
		device.SetAvailability(domain.KindVideo, rtc.Availability(next.Devices.Video))
		log.Info().Str("module", "main").Str("level", lvl.String()).Msg("applied reloaded config")
	})

	themes, closeThemes, err := newThemeStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open theme store")
	}
	defer closeThemes()

	reg := app.NewRegistry(func(token string) *session.Shell {
		return session.New(session.Options{
			Client:         token,
			Device:         device,
			Themes:         themes,
			LocalSurface:   rtc.NewSurface("local", true),
			RemoteSurfaces: rtc.NewRemoteSurface,
		})
	})
	limiter := sig.NewRateLimiter(cfg.RateLimit.Actions, cfg.RateLimit.Interval)

	r := router.SetupRouter(ctx, cfg, reg, limiter)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("CoNote server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err := srv.Shutdown(shutdownCtx)
		reg.CloseAll()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server exited gracefully")
}

func newThemeStore(ctx context.Context, cfg *config.Config) (core.ThemeStore, func(), error) {
	switch cfg.Theme.Store {
	case "", "memory":
		return theme.NewMemoryStore(), func() {}, nil
	case "redis":
		client, err := theme.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Str("module", "main").Msg("close redis")
			}
		}
		return theme.NewRedisStore(client, cfg.Theme.TTL), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown theme store %q", cfg.Theme.Store)
	}
}
