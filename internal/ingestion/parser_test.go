package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"SynthLedger/internal/event"
	"SynthLedger/internal/ingestion"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseOrderSubmit(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":       "550e8400-e29b-41d4-a716-446655440000",
		"user_id":          "660e8400-e29b-41d4-a716-446655440001",
		"market":           "GOLD-SYN",
		"close_shares":     int64(0),
		"open_amount":      int64(100_000_000_000),
		"amount_in_shares": false,
		"direction":        "long",
		"leverage":         int64(200_000_000),
		"price_above":      int64(0),
		"price_below":      int64(0),
		"good_from":        int64(0),
		"good_until":       int64(0),
		"sequence":         int64(42),
		"timestamp":        int64(1700000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "OrderSubmit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	os, ok := evt.(*event.OrderSubmit)
	if !ok {
		t.Fatalf("expected *event.OrderSubmit, got %T", evt)
	}

	if os.Market != "GOLD-SYN" {
		t.Errorf("market: got %s, want GOLD-SYN", os.Market)
	}
	if os.Direction != "long" {
		t.Errorf("direction: got %s, want long", os.Direction)
	}
	if os.OpenAmount != 100_000_000_000 {
		t.Errorf("open_amount: got %d, want 100_000_000_000", os.OpenAmount)
	}
	if os.Leverage != 200_000_000 {
		t.Errorf("leverage: got %d, want 200_000_000", os.Leverage)
	}
	if os.Sequence != 42 {
		t.Errorf("sequence: got %d, want 42", os.Sequence)
	}
	if os.Timestamp.Unix() != 1700000000 {
		t.Errorf("timestamp: got %d, want 1700000000", os.Timestamp.Unix())
	}
	if os.EventType() != event.EventTypeOrderSubmit {
		t.Errorf("event type: got %v, want OrderSubmit", os.EventType())
	}
}

func TestParseOrderSettle(t *testing.T) {
	payload := map[string]interface{}{
		"settlement_id":    "550e8400-e29b-41d4-a716-446655440000",
		"caller_id":        "660e8400-e29b-41d4-a716-446655440001",
		"order_id":         int64(7),
		"price":            int64(20_000_000_000),
		"unadjusted_price": int64(19_990_000_000),
		"spread":           int64(10_000_000),
		"position_time":    int64(1700000000),
		"sequence":         int64(12),
		"timestamp":        int64(1700000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "OrderSettle")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	st, ok := evt.(*event.OrderSettle)
	if !ok {
		t.Fatalf("expected *event.OrderSettle, got %T", evt)
	}

	if st.OrderID != 7 {
		t.Errorf("order_id: got %d, want 7", st.OrderID)
	}
	if st.Price != 20_000_000_000 {
		t.Errorf("price: got %d, want 20_000_000_000", st.Price)
	}
	if st.Spread != 10_000_000 {
		t.Errorf("spread: got %d, want 10_000_000", st.Spread)
	}
	if st.LiquidationTime != 0 {
		t.Errorf("liquidation_time: got %d, want 0 (absent)", st.LiquidationTime)
	}
	if st.EventType() != event.EventTypeOrderSettle {
		t.Errorf("event type: got %v, want OrderSettle", st.EventType())
	}
}

func TestParseMarketFreezePrice(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"caller_id":  "660e8400-e29b-41d4-a716-446655440001",
		"market":     "OIL-SYN",
		"price":      int64(8_000_000_000),
		"sequence":   int64(3),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "MarketFreezePrice")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	fp, ok := evt.(*event.MarketFreezePrice)
	if !ok {
		t.Fatalf("expected *event.MarketFreezePrice, got %T", evt)
	}
	if fp.Market != "OIL-SYN" {
		t.Errorf("market: got %s, want OIL-SYN", fp.Market)
	}
	if fp.Price != 8_000_000_000 {
		t.Errorf("price: got %d, want 8_000_000_000", fp.Price)
	}
}

func TestParseMarketDelist(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"caller_id":  "660e8400-e29b-41d4-a716-446655440001",
		"market":     "OIL-SYN",
		"budget":     int64(50),
		"sequence":   int64(4),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "MarketDelist")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	dl, ok := evt.(*event.MarketDelist)
	if !ok {
		t.Fatalf("expected *event.MarketDelist, got %T", evt)
	}
	if dl.Budget != 50 {
		t.Errorf("budget: got %d, want 50", dl.Budget)
	}
}

func TestParseRateAppend(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"caller_id":  "660e8400-e29b-41d4-a716-446655440001",
		"rate":       int64(15000),
		"valid_from": int64(1700000000),
		"sequence":   int64(1),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "RateAppend")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ra, ok := evt.(*event.RateAppend)
	if !ok {
		t.Fatalf("expected *event.RateAppend, got %T", evt)
	}
	if ra.Rate != 15000 {
		t.Errorf("rate: got %d, want 15000", ra.Rate)
	}
	if ra.ValidFrom != 1700000000 {
		t.Errorf("valid_from: got %d, want 1700000000", ra.ValidFrom)
	}
}

func TestParseEscrowAdminApprove(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"caller_id":  "660e8400-e29b-41d4-a716-446655440001",
		"user_id":    "770e8400-e29b-41d4-a716-446655440002",
		"amount":     int64(5_000_000_000),
		"sequence":   int64(9),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "EscrowAdminApprove")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ap, ok := evt.(*event.EscrowAdminApprove)
	if !ok {
		t.Fatalf("expected *event.EscrowAdminApprove, got %T", evt)
	}
	if ap.Amount != 5_000_000_000 {
		t.Errorf("amount: got %d, want 5_000_000_000", ap.Amount)
	}
}

func TestParseTokenDeposit(t *testing.T) {
	payload := map[string]interface{}{
		"deposit_id": "550e8400-e29b-41d4-a716-446655440000",
		"user_id":    "660e8400-e29b-41d4-a716-446655440001",
		"amount":     int64(1_000_000_000),
		"sequence":   int64(1),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "TokenDeposit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	td, ok := evt.(*event.TokenDeposit)
	if !ok {
		t.Fatalf("expected *event.TokenDeposit, got %T", evt)
	}
	if td.Amount != 1_000_000_000 {
		t.Errorf("amount: got %d, want 1_000_000_000", td.Amount)
	}
	if td.EventType() != event.EventTypeTokenDeposit {
		t.Errorf("event type: got %v, want TokenDeposit", td.EventType())
	}
}

func TestParseUnknownEventType_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{}`)}
	_, err := ingestion.ParseRawEvent(raw, "NonExistentType")
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestParseInvalidJSON_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{invalid json`)}
	_, err := ingestion.ParseRawEvent(raw, "OrderSubmit")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseInvalidUUID_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "not-a-uuid",
		"user_id":    "also-not-a-uuid",
		"market":     "GOLD-SYN",
		"direction":  "long",
		"leverage":   int64(100_000_000),
		"sequence":   int64(0),
		"timestamp":  int64(0),
	}

	raw := rawFromJSON(t, payload)
	_, err := ingestion.ParseRawEvent(raw, "OrderSubmit")
	if err == nil {
		t.Fatal("expected error for invalid UUID")
	}
}
