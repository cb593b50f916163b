// Package events publishes relation events to a message broker.
package events

import (
	"encoding/json"
	"fmt"

	"microposts/domain"
)

// Supported values of Config.Driver.
const (
	DriverNone = ""
	DriverNATS = "nats"
	DriverAMQP = "amqp"
)

// DefaultExchange is the AMQP exchange used when none is configured.
const DefaultExchange = "relations"

// Config selects and configures the event broker.
type Config struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// Publisher is a domain.EventPublisher holding a broker connection.
type Publisher interface {
	domain.EventPublisher
	Close() error
}

// New connects to the broker selected by cfg.Driver.
// It returns a nil Publisher when events are disabled.
func New(cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case DriverNone:
		return nil, nil
	case DriverNATS:
		return NewNatsPublisher(cfg.URL)
	case DriverAMQP:
		return NewAMQPPublisher(cfg.URL, cfg.Exchange)
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
}

// Subject returns the NATS subject and AMQP routing key of an event,
// e.g. "relation.follow.added".
func Subject(event domain.RelationEvent) string {
	return fmt.Sprintf("relation.%s.%s", event.Kind, event.Action)
}

func encode(event domain.RelationEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal relation event: %w", err)
	}
	return data, nil
}
