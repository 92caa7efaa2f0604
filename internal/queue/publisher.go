package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vitor-labes/catalog-browser/internal/domain"
)

type Publisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

func NewPublisher(url, queueName string) (*Publisher, error) {
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

	slog.Info("publisher conectado ao RabbitMQ",
		"queue", queueName,
	)

	return &Publisher{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
	}, nil
}

// Publish sends one product change as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, change domain.ProductChange) error {
	msg, err := newMessage(change)
	if err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		return fmt.Errorf("erro ao publicar mensagem: %w", err)
	}

	slog.Debug("alteração publicada",
		"event_id", change.EventID,
		"kind", change.Kind,
		"product_id", change.ProductID,
	)

	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func newMessage(change domain.ProductChange) (amqp.Publishing, error) {
	body, err := json.Marshal(change)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("erro ao serializar alteração: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    change.EventID,
		Type:         string(change.Kind),
		Body:         body,
		Timestamp:    change.OccurredAt,
	}, nil
}

func declareQueue(ch *amqp.Channel, queueName string) error {
	_, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("falha ao declarar fila: %w", err)
	}
	return nil
}
