package core

import (
	"encoding/json"
	"fmt"

	"SynthLedger/internal/event"
)

// DecodeLoggedEvent turns a persisted event-log payload back into the
// typed event, for replay after a restart. Settlement-shaped events are
// stored wrapped with their results; the wrapper's event member is the
// replayable input.
func DecodeLoggedEvent(eventType string, payload []byte) (event.Event, error) {
	switch eventType {
	case "OrderSubmit":
		return unwrapLogged[event.OrderSubmit](payload)
	case "OrderSettle":
		return unwrapLogged[event.OrderSettle](payload)
	case "MarketDelist":
		return unwrapLogged[event.MarketDelist](payload)
	case "EscrowDelayedMint":
		return unwrapLogged[event.EscrowDelayedMint](payload)
	case "OrderCancelRequest":
		return decodeLogged[event.OrderCancelRequest](payload)
	case "OrderCancelFinalize":
		return decodeLogged[event.OrderCancelFinalize](payload)
	case "OrderAdminCancel":
		return decodeLogged[event.OrderAdminCancel](payload)
	case "OrderRepoint":
		return decodeLogged[event.OrderRepoint](payload)
	case "MarketCreate":
		return decodeLogged[event.MarketCreate](payload)
	case "MarketActivate":
		return decodeLogged[event.MarketActivate](payload)
	case "MarketDeactivate":
		return decodeLogged[event.MarketDeactivate](payload)
	case "MarketFreezePrice":
		return decodeLogged[event.MarketFreezePrice](payload)
	case "RateAppend":
		return decodeLogged[event.RateAppend](payload)
	case "RateSetActive":
		return decodeLogged[event.RateSetActive](payload)
	case "EscrowAdminApprove":
		return decodeLogged[event.EscrowAdminApprove](payload)
	case "EscrowAdminDisapprove":
		return decodeLogged[event.EscrowAdminDisapprove](payload)
	case "EscrowResetDaily":
		return decodeLogged[event.EscrowResetDaily](payload)
	case "TokenDeposit":
		return decodeLogged[event.TokenDeposit](payload)
	case "TokenWithdrawal":
		return decodeLogged[event.TokenWithdrawal](payload)
	}
	return nil, fmt.Errorf("decode logged event: unknown type %q", eventType)
}

func decodeLogged[E any, PE interface {
	*E
	event.Event
}](payload []byte) (event.Event, error) {
	e := PE(new(E))
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("decode logged event: %w", err)
	}
	return e, nil
}

func unwrapLogged[E any, PE interface {
	*E
	event.Event
}](payload []byte) (event.Event, error) {
	var wrapper struct {
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, fmt.Errorf("decode logged event: %w", err)
	}
	if len(wrapper.Event) == 0 {
		return nil, fmt.Errorf("decode logged event: missing event member")
	}
	return decodeLogged[E, PE](wrapper.Event)
}
