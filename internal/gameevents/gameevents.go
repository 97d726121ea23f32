// Package gameevents publishes gameplay telemetry to Kafka. Publishing
// is best-effort and never blocks the game loop.
package gameevents

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
)

// Event is one gameplay action.
type Event struct {
	Kind    string       `json:"kind"` // spawn|restore|evict|collect|deposit
	Cell    model.CellID `json:"cell"`
	Coin    string       `json:"coin,omitempty"`
	Coins   int          `json:"coins,omitempty"`
	TS      time.Time    `json:"ts"`
	Session string       `json:"session,omitempty"`
}

// Sink receives gameplay events. A nil sink means telemetry is off.
type Sink interface {
	Publish(ev Event)
}

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
}

var _ Sink = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string, queueSize int) (*Publisher, error) {
	if queueSize <= 0 {
		queueSize = 1024
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("gameevents: create async producer: %w", err)
	}

	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				log.Printf("gameevents: marshal error: %v", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Cell.String()),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				log.Printf("gameevents: producer error: %v", err)
			}
		}
	}()

	return p, nil
}

func (p *Publisher) Publish(ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	select {
	case p.events <- ev:
	default:
		// queue full → drop, never block the game loop
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("gameevents: close producer: %w", err)
	}
	return nil
}
