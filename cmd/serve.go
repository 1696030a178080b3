package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-wizard/internal/config"
	"video-wizard/internal/export"
	"video-wizard/internal/i18n"
	"video-wizard/internal/media"
	"video-wizard/internal/server"
	"video-wizard/internal/wizard"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wizard HTTP API",
	Long:  `Start the HTTP API. Sessions live in memory and are closed after SESSION_IDLE_TIMEOUT without activity.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}

		return serve(cfg, logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides HTTP_ADDR")
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	translator, err := i18n.New(cfg.DefaultLang)
	if err != nil {
		return fmt.Errorf("could not load translations: %w", err)
	}

	b, err := newBackends(cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return fmt.Errorf("could not create media dir: %w", err)
	}

	sessions := wizard.NewSessions(wizard.Options{
		Drafter:    b.gemini,
		Speech:     b.speech,
		Prober:     media.NewSimulatedProber(uint64(time.Now().UnixNano())),
		Captions:   media.FixedCaptions{},
		Exporter:   export.Simulator{Interval: cfg.ExportTick},
		Translator: translator,
		SampleRate: cfg.AudioSampleRate,
		MediaRoot:  cfg.MediaDir,
		Logger:     logger,
	}, cfg.SessionIdleTimeout, server.MediaURL)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(sessions, translator, cfg.MaxUploadBytes, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("script_model", cfg.ScriptModel),
			zap.String("speech_model", cfg.SpeechModel),
			zap.String("default_lang", cfg.DefaultLang),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
