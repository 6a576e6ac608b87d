package bootstrap

import (
	"fmt"

	"github.com/Domenick1991/courtbooking/config"
	"github.com/Domenick1991/courtbooking/internal/events"
	"github.com/Domenick1991/courtbooking/internal/kafka"
	"github.com/Domenick1991/courtbooking/internal/mq"
)

// NewPublisher picks the broker the notification events go to.
func NewPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		return kafka.NewProducer(cfg.Kafka.Brokers), nil
	case config.BrokerRabbitMQ:
		p, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		return p, nil
	case config.BrokerNone, "":
		return events.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}

// NewSubscriber returns nil without error when no broker is configured.
func NewSubscriber(cfg config.EventsConfig) (events.Subscriber, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		return kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.NotificationsTopic()), nil
	case config.BrokerRabbitMQ:
		c, err := mq.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, []string{cfg.NotificationsTopic()})
		if err != nil {
			return nil, fmt.Errorf("rabbitmq consumer: %w", err)
		}
		return c, nil
	case config.BrokerNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}
