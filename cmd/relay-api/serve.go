package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/instructor-relay/internal/adapters/http"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}

	handler := httpadapter.NewServer(st.relay, st.rooms, httpadapter.Options{
		Classify:        cfg.Classify,
		Service:         "instructor-relay",
		Provider:        st.gateway.Provider(),
		AgentConfigured: st.gateway.Configured(),
		Metrics:         st.metrics,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := observability.Logger()
	errCh := make(chan error, 1)
	go func() {
		log.Info("relay listening", "addr", srv.Addr, "assistant", cfg.AssistantName, "classify", cfg.Classify)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", shutdownPeriod.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	// ending rooms first cancels agent waits so in-flight requests return fallbacks quickly
	stackErr := st.Close(shutdownCtx)
	srvErr := srv.Shutdown(shutdownCtx)
	return errors.Join(stackErr, srvErr)
}
