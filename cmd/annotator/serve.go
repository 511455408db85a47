package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xpanvictor/annotator/internal/app"
	"github.com/xpanvictor/annotator/internal/ingest"
	"github.com/xpanvictor/annotator/internal/server"
	"github.com/xpanvictor/annotator/pkg/Logger"
	"golang.org/x/sync/errgroup"
)

func serveCommand(rt *cli) *cobra.Command {
	var withIngest bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the annotation API and recorded audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.serve(withIngest)
		},
	}
	cmd.Flags().BoolVar(&withIngest, "with-ingest", false, "Also run an ingestion loop in this process")
	return cmd
}

func (rt *cli) serve(withIngest bool) error {
	a, cleanup, err := rt.newApp(withIngest)
	if err != nil {
		return err
	}
	defer cleanup()

	if !rt.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	server.InitializeRoutes(rt.cfg, router, a.ServerDeps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    rt.cfg.Server.Addr,
		Handler: router.Handler(),
	}

	var consume func(context.Context) error
	if withIngest {
		consume = func(ctx context.Context) error { return runIngest(ctx, a) }
	}
	err = runServer(ctx, srv, consume, rt.logger)
	rt.logger.Info("Shutdown system")
	return err
}

// runServer serves until ctx is done or either side fails. It returns only
// after the HTTP server has shut down and consume, when set, has returned,
// so a message being saved is finished before the stores are closed.
func runServer(ctx context.Context, srv *http.Server, consume func(context.Context) error, logger *Logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if consume != nil {
		g.Go(func() error {
			return consume(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		// 5 secs then cancel
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown err %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("shutting down: %v", err)
		return err
	}
	return nil
}

func runIngest(ctx context.Context, a *app.App) error {
	loop, receiver, err := a.NewIngestLoop()
	if err != nil {
		return err
	}
	defer receiver.Close()
	return loop.Run(ctx, ingest.Forever)
}
