package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bargain-hunter/remote"
	"bargain-hunter/server"
	"bargain-hunter/services"
	"bargain-hunter/storage"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := a.buildPipeline(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			if !cmd.Flags().Changed("port") {
				port = a.cfg.HTTPPort
			}
			srv := server.New(server.Options{
				Port:       port,
				CORSOrigin: a.cfg.CORSOrigin,
				Searcher:   p.search,
				Metrics:    a.metrics,
				Logger:     a.logger,
			})
			return server.Run(ctx, srv, a.logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port; overrides HTTP_PORT")
	return cmd
}

func newWorkerCommand(a *app) *cobra.Command {
	var natsURL, queue string

	cmd := &cobra.Command{
		Use:   "analyzer-worker",
		Short: "Answer listing analysis requests from the NATS bus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if natsURL == "" {
				natsURL = a.cfg.AnalyzerNATSURL
			}
			if natsURL == "" {
				return fmt.Errorf("analyzer-worker: no NATS URL (set ANALYZER_NATS_URL or --nats-url)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			nc, err := a.connectNATS(natsURL)
			if err != nil {
				return err
			}
			defer nc.Close()

			sub, err := remote.ServeAnalysis(nc, a.cfg.AnalyzerSubject, queue, services.NewHeuristicAnalyzer(nil), a.logger)
			if err != nil {
				return fmt.Errorf("analyzer-worker: subscribe: %w", err)
			}
			a.logger.Info("[worker] Serving analyses on %s (queue %s)", a.cfg.AnalyzerSubject, sub.Queue)

			<-ctx.Done()
			a.logger.Info("[worker] Shutdown signal received, draining")
			return nc.Drain()
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL; overrides ANALYZER_NATS_URL")
	cmd.Flags().StringVar(&queue, "queue", remote.DefaultQueue, "NATS queue group")
	return cmd
}

func newSeedCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-prices",
		Short: "Load reference prices into the reference price store",
		Long: `Loads the built-in reference prices, plus any model,msrp rows from --file,
into the configured store. Stored prices take precedence over the built-in
table when estimating MSRP, so the file can both add and override models.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.ReferenceDBDriver == "" {
				return fmt.Errorf("seed-prices: REFERENCE_DB_DRIVER is not set (postgres or sqlite)")
			}

			prices := services.DefaultReferencePrices()
			if file != "" {
				extra, err := storage.ReadReferencePrices(cmd.Context(), file)
				if err != nil {
					return fmt.Errorf("seed-prices: %w", err)
				}
				for model, msrp := range extra {
					prices[model] = msrp
				}
				a.logger.Info("[msrp] Read %d reference prices from %s", len(extra), file)
			}

			store, err := a.openReferenceStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := seed(cmd.Context(), store, prices); err != nil {
				return err
			}
			a.logger.Info("[msrp] Seeded %d reference prices into %s store", len(prices), a.cfg.ReferenceDBDriver)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d reference prices\n", len(prices))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file of model,msrp rows to seed alongside the built-in prices")
	return cmd
}

func seed(ctx context.Context, w storage.ReferencePriceWriter, prices map[string]float64) error {
	if err := w.Seed(ctx, prices); err != nil {
		return fmt.Errorf("seed-prices: %w", err)
	}
	return nil
}
