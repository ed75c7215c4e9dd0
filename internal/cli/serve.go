package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jrsteele09/go-vocab-client/server"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// runServe serves the console until ctx is cancelled.
func runServe(ctx context.Context, a *App, args []string) error {
	fs := newFlags("serve")
	addr := fs.String("addr", a.cfg.GetConsoleAddr(), "listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	srv, err := server.New(a.cfg, server.Services{
		Auth:         a.auth,
		Watcher:      a.watcher,
		Vocabularies: a.vocabularies,
		Categories:   a.categories,
		Admin:        a.admin,
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		return fmt.Errorf("[runServe] listen on %s: %w", *addr, err)
	}
	httpServer := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer, listener)
	}()
	a.printf("Console listening on http://%s\n", listener.Addr())

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server, listener net.Listener) error {
	log.Info().Str("addr", listener.Addr().String()).Msg("console listening")
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Serve %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
