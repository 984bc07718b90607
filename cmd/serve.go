package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zpam/playtennis/pkg/predictor"
	"github.com/zpam/playtennis/pkg/web"
)

var (
	serveAddress         string
	serveShutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction form",
	Long: `Start the single-page web form: one select per feature, a Predict button
that shows the predicted class and its posterior scores, and a dataset
preview. A JSON API is served under /api.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("address") {
			cfg.Server.Address = serveAddress
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		p, err := predictor.Load(cfg, logger)
		if err != nil {
			return err
		}
		defer p.Close()

		server, err := web.NewServer(cfg.Server, p, logger)
		if err != nil {
			return err
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		serverErr := make(chan error, 1)
		go func() {
			fmt.Printf("🎾 Play Tennis form on http://%s\n", server.Addr())
			fmt.Printf("🚀 Press Ctrl+C to stop\n\n")
			serverErr <- server.Start()
		}()

		select {
		case err := <-serverErr:
			return err
		case sig := <-sigChan:
			logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		}

		ctx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			return err
		}
		if err := <-serverErr; err != nil {
			return err
		}

		fmt.Printf("✅ Server stopped gracefully\n")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddress, "address", "a", "127.0.0.1:8501", "Listen address (overrides server.address)")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 5*time.Second, "Time allowed for in-flight requests on shutdown")
}
