package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

// Publisher sends notification events to Kafka. Delivery is best-effort:
// booking and ride operations commit regardless of whether their
// notifications go out.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher, or nil when no brokers are
// configured so callers can skip notifications entirely.
func NewPublisher() *Publisher {
	viper.SetDefault("kafka.brokers", "")
	brokers := viper.GetStringSlice("kafka.brokers")
	if len(brokers) == 0 {
		log.Println("Kafka brokers not configured, notifications disabled")
		return nil
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Publisher) Publish(topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
