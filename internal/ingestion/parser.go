package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/event"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string)
// into a typed event.Event. The ingestion shell validates, parses and
// converts raw events before sending to the deterministic core.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "OrderSubmit":
		return parseOrderSubmit(raw.Data)
	case "OrderCancelRequest":
		return parseOrderCancelRequest(raw.Data)
	case "OrderCancelFinalize":
		return parseOrderCancelFinalize(raw.Data)
	case "OrderAdminCancel":
		return parseOrderAdminCancel(raw.Data)
	case "OrderSettle":
		return parseOrderSettle(raw.Data)
	case "OrderRepoint":
		return parseOrderRepoint(raw.Data)
	case "MarketCreate", "MarketActivate", "MarketDeactivate", "MarketFreezePrice", "MarketDelist":
		return parseMarketAdmin(raw.Data, eventType)
	case "RateAppend":
		return parseRateAppend(raw.Data)
	case "RateSetActive":
		return parseRateSetActive(raw.Data)
	case "EscrowDelayedMint":
		return parseEscrowDelayedMint(raw.Data)
	case "EscrowAdminApprove", "EscrowAdminDisapprove":
		return parseEscrowAdmin(raw.Data, eventType)
	case "EscrowResetDaily":
		return parseEscrowResetDaily(raw.Data)
	case "TokenDeposit":
		return parseTokenDeposit(raw.Data)
	case "TokenWithdrawal":
		return parseTokenWithdrawal(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers; timestamps
// are epoch seconds.

type orderSubmitJSON struct {
	RequestID      string `json:"request_id"`
	UserID         string `json:"user_id"`
	Market         string `json:"market"`
	CloseShares    int64  `json:"close_shares"`
	OpenAmount     int64  `json:"open_amount"`
	AmountInShares bool   `json:"amount_in_shares"`
	Direction      string `json:"direction"` // "long" or "short"
	Leverage       int64  `json:"leverage"`
	PriceAbove     int64  `json:"price_above"`
	PriceBelow     int64  `json:"price_below"`
	GoodFrom       int64  `json:"good_from"`
	GoodUntil      int64  `json:"good_until"`
	Sequence       int64  `json:"sequence"`
	Timestamp      int64  `json:"timestamp"`
}

func parseOrderSubmit(data []byte) (*event.OrderSubmit, error) {
	var j orderSubmitJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OrderSubmit: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	return &event.OrderSubmit{
		RequestID:      requestID,
		UserID:         userID,
		Market:         j.Market,
		CloseShares:    j.CloseShares,
		OpenAmount:     j.OpenAmount,
		AmountInShares: j.AmountInShares,
		Direction:      j.Direction,
		Leverage:       j.Leverage,
		PriceAbove:     j.PriceAbove,
		PriceBelow:     j.PriceBelow,
		GoodFrom:       j.GoodFrom,
		GoodUntil:      j.GoodUntil,
		Sequence:       j.Sequence,
		Timestamp:      time.Unix(j.Timestamp, 0),
	}, nil
}

type cancelRequestJSON struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	OrderID   int64  `json:"order_id"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseOrderCancelRequest(data []byte) (*event.OrderCancelRequest, error) {
	var j cancelRequestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OrderCancelRequest: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	return &event.OrderCancelRequest{
		RequestID: requestID,
		UserID:    userID,
		OrderID:   j.OrderID,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

// adminOrderJSON is the shared wire shape for caller-driven order ops:
// cancel finalization, admin cancel and engine re-pointing.
type adminOrderJSON struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	OrderID   int64  `json:"order_id"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func (j *adminOrderJSON) ids() (uuid.UUID, uuid.UUID, error) {
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse caller_id: %w", err)
	}
	return requestID, callerID, nil
}

func parseOrderCancelFinalize(data []byte) (*event.OrderCancelFinalize, error) {
	var j adminOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OrderCancelFinalize: %w", err)
	}
	requestID, callerID, err := j.ids()
	if err != nil {
		return nil, err
	}
	return &event.OrderCancelFinalize{
		RequestID: requestID,
		CallerID:  callerID,
		OrderID:   j.OrderID,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

func parseOrderAdminCancel(data []byte) (*event.OrderAdminCancel, error) {
	var j adminOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OrderAdminCancel: %w", err)
	}
	requestID, callerID, err := j.ids()
	if err != nil {
		return nil, err
	}
	return &event.OrderAdminCancel{
		RequestID: requestID,
		CallerID:  callerID,
		OrderID:   j.OrderID,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

func parseOrderRepoint(data []byte) (*event.OrderRepoint, error) {
	var j adminOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OrderRepoint: %w", err)
	}
	requestID, callerID, err := j.ids()
	if err != nil {
		return nil, err
	}
	return &event.OrderRepoint{
		RequestID: requestID,
		CallerID:  callerID,
		OrderID:   j.OrderID,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

type settleJSON struct {
	SettlementID    string `json:"settlement_id"`
	CallerID        string `json:"caller_id"`
	OrderID         int64  `json:"order_id"`
	Price           int64  `json:"price"`
	UnadjustedPrice int64  `json:"unadjusted_price"`
	Spread          int64  `json:"spread"`
	PositionTime    int64  `json:"position_time"`
	LiquidationTime int64  `json:"liquidation_time,omitempty"`
	Sequence        int64  `json:"sequence"`
	Timestamp       int64  `json:"timestamp"`
}

func parseOrderSettle(data []byte) (*event.OrderSettle, error) {
	var j settleJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OrderSettle: %w", err)
	}
	settlementID, err := uuid.Parse(j.SettlementID)
	if err != nil {
		return nil, fmt.Errorf("parse settlement_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	return &event.OrderSettle{
		SettlementID:    settlementID,
		CallerID:        callerID,
		OrderID:         j.OrderID,
		Price:           j.Price,
		UnadjustedPrice: j.UnadjustedPrice,
		Spread:          j.Spread,
		PositionTime:    j.PositionTime,
		LiquidationTime: j.LiquidationTime,
		Sequence:        j.Sequence,
		Timestamp:       time.Unix(j.Timestamp, 0),
	}, nil
}

type marketAdminJSON struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	Market    string `json:"market"`
	Price     int64  `json:"price,omitempty"`
	Budget    int    `json:"budget,omitempty"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseMarketAdmin(data []byte, eventType string) (event.Event, error) {
	var j marketAdminJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse %s: %w", eventType, err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	ts := time.Unix(j.Timestamp, 0)

	switch eventType {
	case "MarketCreate":
		return &event.MarketCreate{RequestID: requestID, CallerID: callerID, Market: j.Market, Sequence: j.Sequence, Timestamp: ts}, nil
	case "MarketActivate":
		return &event.MarketActivate{RequestID: requestID, CallerID: callerID, Market: j.Market, Sequence: j.Sequence, Timestamp: ts}, nil
	case "MarketDeactivate":
		return &event.MarketDeactivate{RequestID: requestID, CallerID: callerID, Market: j.Market, Sequence: j.Sequence, Timestamp: ts}, nil
	case "MarketFreezePrice":
		return &event.MarketFreezePrice{RequestID: requestID, CallerID: callerID, Market: j.Market, Price: j.Price, Sequence: j.Sequence, Timestamp: ts}, nil
	case "MarketDelist":
		return &event.MarketDelist{RequestID: requestID, CallerID: callerID, Market: j.Market, Budget: j.Budget, Sequence: j.Sequence, Timestamp: ts}, nil
	default:
		return nil, fmt.Errorf("unknown market event type: %s", eventType)
	}
}

type rateAppendJSON struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	Rate      int64  `json:"rate"`
	ValidFrom int64  `json:"valid_from"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseRateAppend(data []byte) (*event.RateAppend, error) {
	var j rateAppendJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RateAppend: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	return &event.RateAppend{
		RequestID: requestID,
		CallerID:  callerID,
		Rate:      j.Rate,
		ValidFrom: j.ValidFrom,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

type rateActiveJSON struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	Index     int    `json:"index"`
	Active    bool   `json:"active"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseRateSetActive(data []byte) (*event.RateSetActive, error) {
	var j rateActiveJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RateSetActive: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	return &event.RateSetActive{
		RequestID: requestID,
		CallerID:  callerID,
		Index:     j.Index,
		Active:    j.Active,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

type escrowMintJSON struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseEscrowDelayedMint(data []byte) (*event.EscrowDelayedMint, error) {
	var j escrowMintJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse EscrowDelayedMint: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	return &event.EscrowDelayedMint{
		RequestID: requestID,
		UserID:    userID,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

type escrowAdminJSON struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseEscrowAdmin(data []byte, eventType string) (event.Event, error) {
	var j escrowAdminJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse %s: %w", eventType, err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	ts := time.Unix(j.Timestamp, 0)

	if eventType == "EscrowAdminApprove" {
		return &event.EscrowAdminApprove{RequestID: requestID, CallerID: callerID, UserID: userID, Amount: j.Amount, Sequence: j.Sequence, Timestamp: ts}, nil
	}
	return &event.EscrowAdminDisapprove{RequestID: requestID, CallerID: callerID, UserID: userID, Amount: j.Amount, Sequence: j.Sequence, Timestamp: ts}, nil
}

type escrowResetJSON struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseEscrowResetDaily(data []byte) (*event.EscrowResetDaily, error) {
	var j escrowResetJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse EscrowResetDaily: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	return &event.EscrowResetDaily{
		RequestID: requestID,
		CallerID:  callerID,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

type tokenDepositJSON struct {
	DepositID string `json:"deposit_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseTokenDeposit(data []byte) (*event.TokenDeposit, error) {
	var j tokenDepositJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TokenDeposit: %w", err)
	}
	depositID, err := uuid.Parse(j.DepositID)
	if err != nil {
		return nil, fmt.Errorf("parse deposit_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	return &event.TokenDeposit{
		DepositID: depositID,
		UserID:    userID,
		Amount:    j.Amount,
		Sequence:  j.Sequence,
		Timestamp: time.Unix(j.Timestamp, 0),
	}, nil
}

type tokenWithdrawalJSON struct {
	WithdrawalID string `json:"withdrawal_id"`
	UserID       string `json:"user_id"`
	Amount       int64  `json:"amount"`
	Sequence     int64  `json:"sequence"`
	Timestamp    int64  `json:"timestamp"`
}

func parseTokenWithdrawal(data []byte) (*event.TokenWithdrawal, error) {
	var j tokenWithdrawalJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TokenWithdrawal: %w", err)
	}
	withdrawalID, err := uuid.Parse(j.WithdrawalID)
	if err != nil {
		return nil, fmt.Errorf("parse withdrawal_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	return &event.TokenWithdrawal{
		WithdrawalID: withdrawalID,
		UserID:       userID,
		Amount:       j.Amount,
		Sequence:     j.Sequence,
		Timestamp:    time.Unix(j.Timestamp, 0),
	}, nil
}
