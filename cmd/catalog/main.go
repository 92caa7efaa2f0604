package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vitor-labes/catalog-browser/internal/catalog"
	"github.com/vitor-labes/catalog-browser/internal/config"
	"github.com/vitor-labes/catalog-browser/internal/metrics"
	"github.com/vitor-labes/catalog-browser/internal/queue"
	"github.com/vitor-labes/catalog-browser/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{in: os.Stdin, out: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

type app struct {
	in  io.Reader
	out io.Writer

	baseURL string
	timeout time.Duration

	cfg       *config.Config
	client    *catalog.Client
	tracer    tracing.Tracer
	publisher *queue.Publisher

	// openJournal connects to the change journal; nil uses PostgreSQL.
	openJournal func(databaseURL string) (changeLister, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "catalog",
		Short:        "Navega, busca e edita o catálogo de produtos",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "URL base do catálogo (sobrescreve CATALOG_BASE_URL)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "timeout por requisição (sobrescreve CATALOG_TIMEOUT)")

	root.AddCommand(
		a.listCmd(),
		a.searchCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.browseCmd(),
		a.journalCmd(),
	)

	return root
}

func (a *app) setup() error {
	config.LoadEnv()
	a.cfg = config.FromEnv()

	if a.baseURL != "" {
		a.cfg.BaseURL = a.baseURL
	}
	if a.timeout > 0 {
		a.cfg.Timeout = a.timeout
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: a.cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Metrics
	if a.cfg.MetricsAddr != "" {
		go func() {
			slog.Debug("iniciando servidor de métricas", "addr", a.cfg.MetricsAddr)
			if err := metrics.StartMetricsServer(a.cfg.MetricsAddr); err != nil {
				slog.Warn("servidor de métricas indisponível", "error", err)
			}
		}()
	}

	httpClient := &http.Client{}
	a.tracer = tracing.Noop()
	if a.cfg.Tracing {
		tr, err := tracing.NewWriterTracer("catalog", os.Stderr)
		if err != nil {
			return fmt.Errorf("erro ao iniciar tracing: %w", err)
		}
		a.tracer = tr
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	var notifier catalog.ChangeNotifier
	if a.cfg.PublishChanges {
		publisher, err := queue.NewPublisher(a.cfg.RabbitMQURL, a.cfg.QueueName)
		if err != nil {
			return fmt.Errorf("erro ao conectar no RabbitMQ: %w", err)
		}
		a.publisher = publisher
		notifier = publisher
	}

	client, err := catalog.NewClient(catalog.Config{
		BaseURL:    a.cfg.BaseURL,
		Timeout:    a.cfg.Timeout,
		HTTPClient: httpClient,
		Tracer:     a.tracer,
		Notifier:   notifier,
	})
	if err != nil {
		return err
	}
	a.client = client

	slog.Debug("catálogo configurado",
		"base_url", a.cfg.BaseURL,
		"timeout", a.cfg.Timeout,
		"publish_changes", a.cfg.PublishChanges,
	)

	return nil
}

func (a *app) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("erro ao fechar publisher", "error", err)
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(); err != nil {
			slog.Warn("erro ao finalizar tracing", "error", err)
		}
	}
}
