package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SynthLedger/internal/auth"
	"SynthLedger/internal/core"
	"SynthLedger/internal/escrow"
	"SynthLedger/internal/event"
	"SynthLedger/internal/ingestion"
	"SynthLedger/internal/persistence"
)

// fakeEventLog serves pre-built rows the way the snapshot manager pages
// them out of Postgres.
type fakeEventLog struct {
	rows []persistence.EventRow
}

func (f *fakeEventLog) LoadEventsFrom(_ context.Context, fromSequence int64, limit int) ([]persistence.EventRow, error) {
	var out []persistence.EventRow
	for _, r := range f.rows {
		if r.Sequence < fromSequence {
			continue
		}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Replay must complete even when the event backlog is far larger than
// the persist channel: ProcessEvent blocks on that channel, so the
// output workers have to be draining it while replay runs.
func TestReplayDrainsThroughRunningWorkers(t *testing.T) {
	const eventCount = 1500
	const chanCap = 8

	user := uuid.New()
	rows := make([]persistence.EventRow, 0, eventCount)
	for i := 0; i < eventCount; i++ {
		dep := &event.TokenDeposit{
			DepositID: uuid.New(),
			UserID:    user,
			Amount:    100,
			Sequence:  int64(i),
			Timestamp: time.Unix(int64(1000+i), 0),
		}
		payload, err := json.Marshal(dep)
		if err != nil {
			t.Fatalf("marshal deposit: %v", err)
		}
		rows = append(rows, persistence.EventRow{
			Sequence:  int64(i + 1),
			EventType: "TokenDeposit",
			Payload:   payload,
		})
	}

	persistCoreChan := make(chan core.CoreOutput, chanCap)
	projectionCoreChan := make(chan core.CoreOutput, chanCap)
	persistWorkerChan := make(chan core.CoreOutput, chanCap)
	publishChan := make(chan ingestion.PublishableEvent, chanCap)

	processor := core.NewProcessor(core.Config{
		StartSequence: 1,
		Escrow:        escrow.Config{},
	}, auth.NewStaticRegistry(), persistCoreChan, projectionCoreChan, nil, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go fanOutCoreOutputs(ctx, persistCoreChan, persistWorkerChan, publishChan)
	go func() {
		for range persistWorkerChan {
		}
	}()

	type replayResult struct {
		count int64
		err   error
	}
	resultChan := make(chan replayResult, 1)
	go func() {
		n, err := replayEventsFromLog(ctx, &fakeEventLog{rows: rows}, processor, 1)
		resultChan <- replayResult{count: n, err: err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			t.Fatalf("replay: %v", res.err)
		}
		if res.count != eventCount {
			t.Errorf("replayed: got %d, want %d", res.count, eventCount)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("replay stalled with output workers running")
	}

	if got := processor.GetSequence(); got != eventCount+1 {
		t.Errorf("next sequence: got %d, want %d", got, eventCount+1)
	}
}
