package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/flarebyte/active-context/internal/app"
	"github.com/flarebyte/active-context/internal/buildinfo"
)

var (
	flagSource      string
	flagConfig      string
	flagMetricsAddr string
	flagVerbose     bool
)

// Cmd implements `actx serve`.
var Cmd = &cobra.Command{
	Use:           "serve",
	Short:         "Serve the active context tools over MCP on stdio",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(app.Options{
			SourceDir:  flagSource,
			ConfigPath: flagConfig,
			Verbose:    flagVerbose,
			LogOutput:  cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = serve(ctx, a)
		if cerr := a.Close(); err == nil {
			err = cerr
		}
		return err
	},
}

func init() {
	Cmd.Flags().StringVarP(&flagSource, "source", "s", "", "Project source directory (default: config sourceDir or .)")
	Cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (.cue)")
	Cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9090")
	Cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug details to stderr")
}

func serve(ctx context.Context, a *app.App) error {
	if flagMetricsAddr != "" {
		srv := metricsServer(flagMetricsAddr, a)
		go func() {
			a.Logger.Info("metrics server listening", "addr", flagMetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "actx", Version: buildinfo.Summary()}, nil)
	tools{manager: a.Manager}.register(server)
	a.Logger.Info("mcp server starting", "source", a.SourceDir)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("mcp server stopped", "error", err)
		return err
	}
	return nil
}

func metricsServer(addr string, a *app.App) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Metrics.Registry(), promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
