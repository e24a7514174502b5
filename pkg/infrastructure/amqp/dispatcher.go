package amqp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

const (
	contentType    = "application/json"
	publishTimeout = 5 * time.Second
)

type envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    model.Event `json:"payload"`
}

// Dispatcher publishes domain events to a topic exchange. The routing key is
// the event type in dotted lower case, e.g. "figurestore.invoicecreated".
type Dispatcher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewDispatcher(url, exchange string) (*Dispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to amqp broker")
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open amqp channel")
	}
	err = channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to declare exchange %s", exchange)
	}
	return &Dispatcher{conn: conn, channel: channel, exchange: exchange}, nil
}

func (d *Dispatcher) Dispatch(event model.Event) error {
	body, err := encode(event, time.Now().UTC())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = d.channel.PublishWithContext(ctx, d.exchange, RoutingKey(d.exchange, event), false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type(),
		Body:         body,
	})
	return errors.Wrapf(err, "failed to publish %s", event.Type())
}

func (d *Dispatcher) Close() error {
	if err := d.channel.Close(); err != nil {
		_ = d.conn.Close()
		return errors.Wrap(err, "failed to close amqp channel")
	}
	return errors.Wrap(d.conn.Close(), "failed to close amqp connection")
}

func encode(event model.Event, occurredAt time.Time) ([]byte, error) {
	body, err := json.Marshal(envelope{Type: event.Type(), OccurredAt: occurredAt, Payload: event})
	return body, errors.Wrapf(err, "failed to encode %s", event.Type())
}

func RoutingKey(exchange string, event model.Event) string {
	return exchange + "." + strings.ToLower(event.Type())
}

// LogDispatcher writes every event to the log. It is used when no broker is configured.
type LogDispatcher struct {
	logger logrus.FieldLogger
}

func NewLogDispatcher(logger logrus.FieldLogger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(event model.Event) error {
	d.logger.WithFields(logrus.Fields{
		"event":   event.Type(),
		"payload": event,
	}).Info("domain event")
	return nil
}
