package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds events
// into the deterministic core via the eventChan. NATS is the primary
// high-throughput ingestion surface; each subject maps to one event
// type.
type NATSSubscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumers []jetstream.ConsumeContext
}

// RawEvent is the parsed-but-untyped event from NATS, ready for the
// shell to validate and convert into a typed event.Event before sending
// to the core.
type RawEvent struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to event types.
type SubjectConfig struct {
	Subject      string
	EventType    string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject configuration. Each
// event type has its own subject for independent scaling.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "synth.orders.submit.>", EventType: "OrderSubmit", ConsumerName: "ledger-order-submit", StreamName: "SYNTH_ORDERS"},
		{Subject: "synth.orders.cancel.request.>", EventType: "OrderCancelRequest", ConsumerName: "ledger-cancel-request", StreamName: "SYNTH_ORDERS"},
		{Subject: "synth.orders.cancel.finalize.>", EventType: "OrderCancelFinalize", ConsumerName: "ledger-cancel-finalize", StreamName: "SYNTH_ORDERS"},
		{Subject: "synth.orders.cancel.admin.>", EventType: "OrderAdminCancel", ConsumerName: "ledger-cancel-admin", StreamName: "SYNTH_ORDERS"},
		{Subject: "synth.orders.repoint.>", EventType: "OrderRepoint", ConsumerName: "ledger-order-repoint", StreamName: "SYNTH_ORDERS"},
		{Subject: "synth.settlements.>", EventType: "OrderSettle", ConsumerName: "ledger-settlements", StreamName: "SYNTH_SETTLEMENTS"},
		{Subject: "synth.markets.create.>", EventType: "MarketCreate", ConsumerName: "ledger-market-create", StreamName: "SYNTH_MARKETS"},
		{Subject: "synth.markets.activate.>", EventType: "MarketActivate", ConsumerName: "ledger-market-activate", StreamName: "SYNTH_MARKETS"},
		{Subject: "synth.markets.deactivate.>", EventType: "MarketDeactivate", ConsumerName: "ledger-market-deactivate", StreamName: "SYNTH_MARKETS"},
		{Subject: "synth.markets.freeze.>", EventType: "MarketFreezePrice", ConsumerName: "ledger-market-freeze", StreamName: "SYNTH_MARKETS"},
		{Subject: "synth.markets.delist.>", EventType: "MarketDelist", ConsumerName: "ledger-market-delist", StreamName: "SYNTH_MARKETS"},
		{Subject: "synth.rates.append.>", EventType: "RateAppend", ConsumerName: "ledger-rate-append", StreamName: "SYNTH_RATES"},
		{Subject: "synth.rates.active.>", EventType: "RateSetActive", ConsumerName: "ledger-rate-active", StreamName: "SYNTH_RATES"},
		{Subject: "synth.escrow.mint.>", EventType: "EscrowDelayedMint", ConsumerName: "ledger-escrow-mint", StreamName: "SYNTH_ESCROW"},
		{Subject: "synth.escrow.approve.>", EventType: "EscrowAdminApprove", ConsumerName: "ledger-escrow-approve", StreamName: "SYNTH_ESCROW"},
		{Subject: "synth.escrow.disapprove.>", EventType: "EscrowAdminDisapprove", ConsumerName: "ledger-escrow-disapprove", StreamName: "SYNTH_ESCROW"},
		{Subject: "synth.escrow.reset.>", EventType: "EscrowResetDaily", ConsumerName: "ledger-escrow-reset", StreamName: "SYNTH_ESCROW"},
		{Subject: "synth.tokens.deposit.>", EventType: "TokenDeposit", ConsumerName: "ledger-token-deposit", StreamName: "SYNTH_TOKENS"},
		{Subject: "synth.tokens.withdrawal.>", EventType: "TokenWithdrawal", ConsumerName: "ledger-token-withdrawal", StreamName: "SYNTH_TOKENS"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		eventChan: eventChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawEvent{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.eventChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't
// exist. Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "SYNTH_ORDERS",
			Subjects:  []string{"synth.orders.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "SYNTH_SETTLEMENTS",
			Subjects:  []string{"synth.settlements.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "SYNTH_MARKETS",
			Subjects:  []string{"synth.markets.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "SYNTH_RATES",
			Subjects:  []string{"synth.rates.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "SYNTH_ESCROW",
			Subjects:  []string{"synth.escrow.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "SYNTH_TOKENS",
			Subjects:  []string{"synth.tokens.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
