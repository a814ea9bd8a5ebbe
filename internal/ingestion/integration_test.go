package ingestion_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/event"
	"SynthLedger/internal/ingestion"
	"SynthLedger/internal/testutil"
)

func TestJetStreamDeliversDeposit(t *testing.T) {
	testutil.RequireIntegration(t)

	nc, js, err := ingestion.ConnectNATS(testutil.TestNATSURL())
	if err != nil {
		t.Skipf("test nats not available: %v (set TEST_NATS_URL to override)", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ingestion.EnsureStreams(ctx, js); err != nil {
		t.Fatalf("ensure streams: %v", err)
	}

	rawChan := make(chan ingestion.RawEvent, 16)
	sub := ingestion.NewNATSSubscriber(js, rawChan)
	subjects := []ingestion.SubjectConfig{{
		Subject:      "synth.tokens.deposit.>",
		EventType:    "TokenDeposit",
		ConsumerName: "it-token-deposit",
		StreamName:   "SYNTH_TOKENS",
	}}
	if err := sub.Subscribe(ctx, subjects); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	depositID := uuid.New()
	userID := uuid.New()
	payload, err := json.Marshal(map[string]interface{}{
		"deposit_id": depositID.String(),
		"user_id":    userID.String(),
		"amount":     int64(250),
		"sequence":   int64(1),
		"timestamp":  time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	if _, err := js.Publish(ctx, "synth.tokens.deposit."+userID.String(), payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var raw ingestion.RawEvent
	select {
	case raw = <-rawChan:
	case <-ctx.Done():
		t.Fatal("timed out waiting for delivery")
	}
	defer raw.AckFunc()

	evt, err := ingestion.ParseRawEvent(raw, "TokenDeposit")
	if err != nil {
		t.Fatalf("parse delivered event: %v", err)
	}

	dep, ok := evt.(*event.TokenDeposit)
	if !ok {
		t.Fatalf("expected *event.TokenDeposit, got %T", evt)
	}
	if dep.DepositID != depositID {
		t.Errorf("deposit id: got %s, want %s", dep.DepositID, depositID)
	}
	if dep.UserID != userID {
		t.Errorf("user id: got %s, want %s", dep.UserID, userID)
	}
	if dep.Amount != 250 {
		t.Errorf("amount: got %d, want 250", dep.Amount)
	}
}
