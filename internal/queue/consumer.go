package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vitor-labes/catalog-browser/internal/domain"
)

// errInvalidMessage marks deliveries that can never be processed.
var errInvalidMessage = errors.New("mensagem inválida")

type MessageHandler func(context.Context, domain.ProductChange) error

type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	handler   MessageHandler
}

func NewConsumer(url, queueName string, handler MessageHandler) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	if err := declareQueue(ch, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// Process once
	err = ch.Qos(
		1,
		0,
		false,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("falha ao configurar QoS: %w", err)
	}

	slog.Info("consumer conectado ao RabbitMQ",
		"queue", queueName,
	)

	return &Consumer{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		handler:   handler,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumer: %w", err)
	}

	slog.Info("aguardando mensagens...", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.Info("consumer encerrado pelo contexto")
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("canal de mensagens fechado")
			}

			if err := c.processMessage(ctx, msg); err != nil {
				requeue := !errors.Is(err, errInvalidMessage)
				slog.Error("erro ao processar mensagem",
					"error", err,
					"body", string(msg.Body),
					"requeue", requeue,
				)
				msg.Nack(false, requeue)
			} else {
				msg.Ack(false)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	change, err := decodeChange(msg.Body)
	if err != nil {
		return err
	}

	slog.Info("processando alteração",
		"event_id", change.EventID,
		"kind", change.Kind,
		"product_id", change.ProductID,
	)

	if err := c.handler(ctx, change); err != nil {
		return fmt.Errorf("erro no handler: %w", err)
	}

	return nil
}

func decodeChange(body []byte) (domain.ProductChange, error) {
	var change domain.ProductChange
	if err := json.Unmarshal(body, &change); err != nil {
		return domain.ProductChange{}, fmt.Errorf("%w: erro ao deserializar: %v", errInvalidMessage, err)
	}
	if change.EventID == "" {
		return domain.ProductChange{}, fmt.Errorf("%w: sem event_id", errInvalidMessage)
	}
	switch change.Kind {
	case domain.ChangeCreated, domain.ChangeUpdated, domain.ChangeDeleted:
	default:
		return domain.ProductChange{}, fmt.Errorf("%w: tipo de alteração desconhecido %q", errInvalidMessage, change.Kind)
	}
	return change, nil
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
