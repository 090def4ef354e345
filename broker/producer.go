package broker

import (
	"log"

	"github.com/nats-io/nats.go"
)

var producer *nats.Conn

// InitProducer connects to the NATS server that mirrors task change events.
// The caller decides whether a failure is fatal; every other part of the
// system works without a broker.
func InitProducer(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("taskboard-producer"),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("Reconnected to NATS at %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return err
	}
	producer = nc
	log.Println("NATS producer initialized")
	return nil
}

// PublishMessage publishes an event to a subject, with the event type in a
// header. A no-op when no broker is connected.
func PublishMessage(subject string, key string, value []byte) {
	if producer == nil {
		return
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set("event", key)
	msg.Data = value

	if err := producer.PublishMsg(msg); err != nil {
		log.Printf("Failed to publish %s event to %s: %v", key, subject, err)
	}
}

func CloseProducer() {
	if producer != nil {
		producer.Drain()
		producer = nil
	}
}
