package service

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

// Policy holds the business limits that are configuration rather than invariants.
type Policy struct {
	// CollectionNameLimit is how many collections may share one name.
	CollectionNameLimit int
	OpenCartsPerUser    int
	// LowStockThreshold triggers ProductStockLow when a reservation crosses it. Zero disables it.
	LowStockThreshold int
}

func DefaultPolicy() Policy {
	return Policy{
		CollectionNameLimit: 1,
		OpenCartsPerUser:    1,
		LowStockThreshold:   3,
	}
}

// eventRecorder collects events raised inside a unit of work. They are
// published only after the unit of work commits.
type eventRecorder struct {
	events []model.Event
}

func (r *eventRecorder) record(events ...model.Event) {
	r.events = append(r.events, events...)
}

type publisher struct {
	dispatcher model.EventDispatcher
	logger     logrus.FieldLogger
}

func (p publisher) publish(rec *eventRecorder) {
	for _, event := range rec.events {
		if err := p.dispatcher.Dispatch(event); err != nil {
			p.logger.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}

func now() time.Time {
	return time.Now().UTC()
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
