package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"comanda/internal/printing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PrintPublisher sends print jobs to a topic read by the printer agents. Messages are keyed
// by order id so the slips of one order stay in sequence.
type PrintPublisher struct {
	writer messageWriter
	topic  string
}

func NewPrintPublisher(brokers []string, topic string) *PrintPublisher {
	return &PrintPublisher{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
		},
	}
}

func (p *PrintPublisher) Publish(ctx context.Context, job printing.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding print job: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(job.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(job.Kind)},
		},
		Time: job.RequestedAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing print job to %s: %w", p.topic, err)
	}
	return nil
}

func (p *PrintPublisher) Close() error {
	return p.writer.Close()
}
