package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/botstats/internal/api"
	"github.com/runnerr0/botstats/internal/config"
	"github.com/runnerr0/botstats/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Dashboard.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Dashboard.Port = c.Port
	}

	log, err := newLogger(cfg, c.globals, false)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	addr := net.JoinHostPort(cfg.Dashboard.Host, strconv.Itoa(cfg.Dashboard.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	fmt.Printf("Dashboard running at http://%s\n", displayAddr(ln.Addr()))
	return c.serve(ctx, ln, store, cfg, log)
}

// serve runs the API on ln until ctx is cancelled, then shuts down gracefully.
func (c *ServeCommand) serve(ctx context.Context, ln net.Listener, store *storage.Store, cfg *config.Config, log *zap.Logger) error {
	h := api.NewHandler(storage.NewRecorder(store), storage.NewAggregator(store), log, cfg.Dashboard.EventLimit)
	srv := api.NewServer(h, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// displayAddr swaps an unspecified listen host for localhost.
func displayAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || !tcp.IP.IsUnspecified() {
		return addr.String()
	}
	return net.JoinHostPort("localhost", strconv.Itoa(tcp.Port))
}
