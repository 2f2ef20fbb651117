package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"era-inventory-panel/internal"
	"era-inventory-panel/internal/config"
	"era-inventory-panel/internal/export"
	"era-inventory-panel/internal/logging"
	"era-inventory-panel/internal/records"
	"era-inventory-panel/internal/table"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	readyAttempts   = 5
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "panel",
		Short:         "Era inventory admin panel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), exportCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin panel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	srv, err := internal.NewServer(ctx, cfg)
	if err != nil {
		return err
	}

	if err := srv.Backend.WaitReady(ctx, readyAttempts); err != nil {
		log.Warn().Err(err).Str("backend", cfg.BackendURL).Msg("backend not reachable yet, starting anyway")
	}
	srv.Health.Start(ctx)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Str("backend", cfg.BackendURL).
			Str("environment", cfg.Environment).
			Bool("metrics", cfg.EnableMetrics).
			Msg("panel listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = srv.Close(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(httpServer.Shutdown(shutdownCtx), srv.Close(shutdownCtx))
}

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
		query  string
		sort   string
	)
	cmd := &cobra.Command{
		Use:   "export ENTITY",
		Short: "Export a record table as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ent, ok := cfg.Entity(args[0])
			if !ok {
				return fmt.Errorf("unknown entity %q", args[0])
			}
			format = strings.ToLower(format)
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unsupported format %q", format)
			}

			client, err := internal.NewBackendClient(cfg, nil)
			if err != nil {
				return err
			}
			all, err := client.List(cmd.Context(), ent.Name)
			if err != nil {
				return err
			}
			cols := records.Columns(all)
			rows := table.Sort(table.Filter(all, cols, query), sort)

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				if out == "" {
					out = export.Filename(ent.Name, format)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if format == "xlsx" {
				err = export.WriteXLSX(w, ent.Label, cols, rows)
			} else {
				err = export.WriteCSV(w, cols, rows)
			}
			if err != nil {
				return err
			}
			log.Info().Str("entity", ent.Name).Int("rows", len(rows)).Str("out", out).Msg("export finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default <entity>s.<format>)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "keyword filter")
	cmd.Flags().StringVar(&sort, "sort", "", "sort column, prefix with - for descending")
	return cmd
}
