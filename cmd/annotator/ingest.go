package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/xpanvictor/annotator/internal/ingest"
)

func ingestCommand(rt *cli) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Consume recognized recordings from the queue and store them",
		Long: "Runs one sequential ingestion loop. Start several processes to consume in parallel; " +
			"with the mqtt transport give them the same group so the broker splits the messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.ingest(count)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many messages (0 runs until interrupted)")
	return cmd
}

func (rt *cli) ingest(count int) error {
	a, cleanup, err := rt.newApp(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := rt.cfg.Ingest.MetricsAddr; addr != "" {
		metricsSrv := &http.Server{
			Addr:    addr,
			Handler: promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Errorf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	cont := ingest.Forever
	if count > 0 {
		cont = ingest.Times(count)
	}

	loop, receiver, err := a.NewIngestLoop()
	if err != nil {
		return err
	}
	defer receiver.Close()

	if err := loop.Run(ctx, cont); err != nil {
		var halt *ingest.HaltError
		if errors.As(err, &halt) {
			rt.logger.Errorf("ingestion halted on %s failure", halt.Kind)
		}
		return err
	}
	return nil
}
