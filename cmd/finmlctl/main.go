// Command finmlctl talks to a running finml server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/finml/internal/infra/client"
	"github.com/boddenberg/finml/internal/infra/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalFlags struct {
	url      string
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "finmlctl",
		Short:         "Client for the finml expense categorization and forecasting API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.url, "url", envOr("FINML_URL", "http://localhost:5000"), "finml server base URL")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "per-request timeout")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		healthCmd(flags),
		categorizeCmd(flags),
		forecastCmd(flags),
		retrainCmd(flags),
		tokenCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (f *globalFlags) client(opts ...client.Option) (*client.Client, *zap.Logger) {
	logger := observability.NewLogger(f.logLevel)
	opts = append([]client.Option{client.WithHTTPClient(&http.Client{Timeout: f.timeout})}, opts...)
	return client.New(f.url, logger, opts...), logger
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
