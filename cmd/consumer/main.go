package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitor-labes/catalog-browser/internal/config"
	"github.com/vitor-labes/catalog-browser/internal/domain"
	"github.com/vitor-labes/catalog-browser/internal/metrics"
	"github.com/vitor-labes/catalog-browser/internal/queue"
	"github.com/vitor-labes/catalog-browser/internal/repository"
)

type changeSaver interface {
	Save(ctx context.Context, change domain.ProductChange) error
}

func main() {
	config.LoadEnv()
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Metrics
	if cfg.ConsumerMetricsAddr != "" {
		go func() {
			slog.Info("iniciando servidor de métricas", "addr", cfg.ConsumerMetricsAddr)
			if err := metrics.StartMetricsServer(cfg.ConsumerMetricsAddr); err != nil {
				log.Fatalf("erro ao iniciar servidor de métricas: %v", err)
			}
		}()
	}

	slog.Info("iniciando consumer",
		"queue", cfg.QueueName,
	)

	// Connection
	repo, err := repository.NewChangeRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("erro ao conectar no banco: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("erro ao preparar banco: %v", err)
	}

	consumer, err := queue.NewConsumer(cfg.RabbitMQURL, cfg.QueueName, journalHandler(repo))
	if err != nil {
		log.Fatalf("erro ao criar consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- consumer.Start(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("sinal recebido, encerrando...", "signal", sig)
		cancel()
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("erro no consumer: %v", err)
		}
	}

	slog.Info("consumer encerrado com sucesso")
}

// journalHandler saves each change and records consumer metrics.
func journalHandler(repo changeSaver) queue.MessageHandler {
	return func(ctx context.Context, change domain.ProductChange) error {
		startTime := time.Now()

		err := repo.Save(ctx, change)

		metrics.MessageProcessingDuration.Observe(time.Since(startTime).Seconds())

		if err != nil {
			metrics.MessagesProcessed.WithLabelValues("error").Inc()
			metrics.DatabaseInserts.WithLabelValues("error").Inc()
			return err
		}

		metrics.MessagesProcessed.WithLabelValues("success").Inc()
		metrics.DatabaseInserts.WithLabelValues("success").Inc()
		return nil
	}
}
