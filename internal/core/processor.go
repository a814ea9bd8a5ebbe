package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SynthLedger/internal/auth"
	"SynthLedger/internal/engine"
	"SynthLedger/internal/escrow"
	"SynthLedger/internal/event"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/market"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/order"
	"SynthLedger/internal/position"
	"SynthLedger/internal/rates"
)

// Config carries the deterministic parameters the core is booted with.
// Everything here is versioned input: changing a value means deploying
// a new engine version, never mutating a running core.
type Config struct {
	StartSequence       int64
	MaxLeverage         int64 // Precision-scaled, Precision = 1x
	DeployedAt          int64 // epoch seconds, interest clamp anchor
	InitialRate         int64 // Precision-scaled per-day rate
	Escrow              escrow.Config
	IdempotencyCapacity int
}

// CoreOutput is what the core emits per applied event: the envelope for
// the event log, the journal batches it produced and the canonical
// state delta that was hashed.
type CoreOutput struct {
	Envelope   *event.EventEnvelope
	Batches    []ledger.Batch
	StateDelta []byte
}

// Processor is the single-threaded deterministic core. It owns every
// piece of mutable ledger state; all other goroutines see state only
// through CoreOutput or read-side projections. The processor never
// calls time.Now(): every timestamp is carried by the event.
type Processor struct {
	sequence int64
	hasher   *StateHasher

	tracker   *ledger.BalanceTracker
	tokens    *ledger.JournalLedger
	validator *ledger.InvariantValidator
	book      *position.Book
	markets   *market.Controller
	schedule  *rates.Schedule
	limiter   *escrow.Limiter
	manager   *engine.Manager
	registry  auth.PermissionRegistry

	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics
	log               zerolog.Logger

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

func NewProcessor(
	cfg Config,
	registry auth.PermissionRegistry,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Processor {
	tracker := ledger.NewBalanceTracker()
	tokens := ledger.NewJournalLedger(tracker)
	validator := ledger.NewInvariantValidator(tracker)
	book := position.NewBook()
	markets := market.NewController()
	schedule := rates.NewSchedule(cfg.DeployedAt, cfg.InitialRate)
	limiter := escrow.NewLimiter(cfg.Escrow, tokens, registry)

	store := order.NewStore()
	gateway := order.NewGateway(store, markets, book, tokens, registry, cfg.MaxLeverage)
	eng := engine.New(book, markets, schedule, tokens, limiter, log)
	manager := engine.NewManager(gateway, registry, eng)

	capacity := cfg.IdempotencyCapacity
	if capacity <= 0 {
		capacity = 1_000_000
	}

	return &Processor{
		sequence:          cfg.StartSequence,
		hasher:            NewStateHasher(),
		tracker:           tracker,
		tokens:            tokens,
		validator:         validator,
		book:              book,
		markets:           markets,
		schedule:          schedule,
		limiter:           limiter,
		manager:           manager,
		registry:          registry,
		idempotency:       NewIdempotencyChecker(capacity, dbChecker),
		sequenceValidator: NewSequenceValidator(),
		metrics:           metrics,
		log:               log.With().Str("component", "core").Logger(),
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// ProcessEvent is the main processing pipeline: dedup, sequence check,
// dispatch, hash, emit, mark processed.
func (p *Processor) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: idempotency check (two-tier)
	isDuplicate := p.idempotency.IsDuplicate(eventType, idempotencyKey)

	// Step 2: sequence validation. Settlement calls arrive from multiple
	// price sources sharing one partition, so gaps are tolerated there;
	// every other partition is strictly ordered.
	sourceSequence := evt.SourceSequence()
	partition := p.getPartition(evt)

	var seqErr error
	if _, ok := evt.(*event.OrderSettle); ok {
		seqErr = p.sequenceValidator.ValidateSettlementSequence(sourceSequence, isDuplicate)
	} else {
		seqErr = p.sequenceValidator.ValidateSequence(partition, sourceSequence, isDuplicate)
	}
	if seqErr != nil {
		if p.metrics != nil {
			p.metrics.CoreEventsRejected.WithLabelValues(eventType, "sequence").Inc()
			p.metrics.EventOutOfOrder.WithLabelValues(partition).Inc()
		}
		return fmt.Errorf("sequence validation failed: %w", seqErr)
	}

	if isDuplicate {
		if p.metrics != nil {
			p.metrics.CoreEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: dispatch. Handlers mutate state through the journal
	// ledger; every produced batch is already validated and applied, so
	// a handler error guarantees no batch was emitted for this event.
	payload, dispatchErr := p.dispatch(evt)
	if dispatchErr != nil {
		if p.metrics != nil {
			p.metrics.CoreEventsRejected.WithLabelValues(eventType, "validation").Inc()
		}
		return fmt.Errorf("dispatch failed: %w", dispatchErr)
	}

	// Step 4: drain the journal tail for this event
	batches := p.tokens.TakeBatches()

	// Step 5: post-checks
	if err := p.postCheckInvariants(); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 6: state digest and hash chain
	hashStart := time.Now()
	stateDigest := p.computeStateDigest(batches, payload)
	prevHash := p.hasher.GetPrevHash()
	stateHash := p.hasher.ComputeHash(p.sequence, stateDigest)
	if p.metrics != nil {
		p.metrics.CoreStateHashDur.Observe(time.Since(hashStart).Seconds())
	}

	// Step 7: envelope with JSON payload
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("FATAL: payload marshal failed for %s: %v", eventType, err))
	}

	envelope := &event.EventEnvelope{
		Sequence:       p.sequence,
		IdempotencyKey: idempotencyKey,
		EventType:      evt.EventType(),
		MarketID:       evt.MarketID(),
		Timestamp:      p.getEventTimestamp(evt),
		SourceSequence: sourceSequence,
		Payload:        payloadBytes,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Batches:    batches,
		StateDelta: stateDigest,
	}
	p.sequence++

	// Step 8: emit. Persistence uses a BLOCKING send: the core stalls
	// until the persistence worker drains, so no applied event is ever
	// lost. Projections use a NON-BLOCKING send and may drop; they can
	// rebuild from the event log.
	select {
	case p.persistChan <- output:
	default:
		if p.metrics != nil {
			p.metrics.PersistBackpressure.Inc()
		}
		p.persistChan <- output
	}

	select {
	case p.projectionChan <- output:
	default:
		if p.metrics != nil {
			p.metrics.ProjectionDrops.WithLabelValues("core").Inc()
		}
	}

	// Step 9: mark processed
	p.idempotency.MarkProcessed(eventType, idempotencyKey)

	if p.metrics != nil {
		p.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		p.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		p.metrics.CoreSequence.Set(float64(p.sequence))
		p.metrics.DedupLRUSize.Set(float64(p.idempotency.lru.Size()))
		for _, batch := range batches {
			for _, j := range batch.Journals {
				p.metrics.CoreJournals.WithLabelValues(string(j.Type)).Inc()
			}
		}
	}

	return nil
}

// getPartition determines the partition key for sequence validation.
func (p *Processor) getPartition(evt event.Event) string {
	if marketID := evt.MarketID(); marketID != nil {
		return fmt.Sprintf("market:%s", *marketID)
	}
	if _, ok := evt.(*event.OrderSettle); ok {
		return "settlement"
	}
	return "global"
}

// getEventTimestamp extracts the versioned timestamp from an event.
// The core MUST NOT call time.Now(); all timestamps are inputs.
func (p *Processor) getEventTimestamp(evt event.Event) time.Time {
	switch e := evt.(type) {
	case *event.OrderSubmit:
		return e.Timestamp
	case *event.OrderCancelRequest:
		return e.Timestamp
	case *event.OrderCancelFinalize:
		return e.Timestamp
	case *event.OrderAdminCancel:
		return e.Timestamp
	case *event.OrderSettle:
		return e.Timestamp
	case *event.OrderRepoint:
		return e.Timestamp
	case *event.MarketCreate:
		return e.Timestamp
	case *event.MarketActivate:
		return e.Timestamp
	case *event.MarketDeactivate:
		return e.Timestamp
	case *event.MarketFreezePrice:
		return e.Timestamp
	case *event.MarketDelist:
		return e.Timestamp
	case *event.RateAppend:
		return e.Timestamp
	case *event.RateSetActive:
		return e.Timestamp
	case *event.EscrowDelayedMint:
		return e.Timestamp
	case *event.EscrowAdminApprove:
		return e.Timestamp
	case *event.EscrowAdminDisapprove:
		return e.Timestamp
	case *event.EscrowResetDaily:
		return e.Timestamp
	case *event.TokenDeposit:
		return e.Timestamp
	case *event.TokenWithdrawal:
		return e.Timestamp
	default:
		panic(fmt.Sprintf("FATAL: getEventTimestamp called with unhandled event type %T — deterministic core cannot use wall-clock time", evt))
	}
}

// computeStateDigest builds the canonical bytes hashed into the chain:
// every account touched by this event with its post-event balance, plus
// the post-settlement position bytes when a settlement mutated one.
func (p *Processor) computeStateDigest(batches []ledger.Batch, payload interface{}) []byte {
	affected := make(map[ledger.AccountKey]bool)
	for _, batch := range batches {
		for _, j := range batch.Journals {
			affected[j.Debit] = true
			affected[j.Credit] = true
		}
	}

	accounts := make([]ledger.AccountKey, 0, len(affected))
	for key := range affected {
		accounts = append(accounts, key)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64)
	for _, key := range accounts {
		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, p.tracker.Balance(key))
	}

	// Settlements mutate position state that no journal reflects.
	switch pl := payload.(type) {
	case *settlePayload:
		digest = append(digest, pl.Result.Position.CanonicalBytes()...)
	case *delistPayload:
		for _, pos := range p.book.OpenInMarket(pl.Event.Market) {
			digest = append(digest, pos.CanonicalBytes()...)
		}
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants runs a periodic global conservation check. Every
// batch is zero-sum by construction; this catches drift anyway.
func (p *Processor) postCheckInvariants() error {
	if p.sequence > 0 && p.sequence%1000 == 0 {
		if err := p.validator.ValidateGlobalBalance(); err != nil {
			return fmt.Errorf("at sequence %d: %w", p.sequence, err)
		}
	}
	return nil
}

// --- Event payloads ---

// submitPayload records the order the gateway assigned.
type submitPayload struct {
	Event *event.OrderSubmit `json:"event"`
	Order *order.Order       `json:"order"`
}

// settlePayload records the settlement effects for the event log.
type settlePayload struct {
	Event  *event.OrderSettle `json:"event"`
	Result *engine.Result     `json:"result"`
}

// delistPayload records a bounded delist pass, including partial ones.
type delistPayload struct {
	Event  *event.MarketDelist  `json:"event"`
	Report *engine.DelistReport `json:"report"`
}

// mintPayload records how much escrow a delayed mint released.
type mintPayload struct {
	Event  *event.EscrowDelayedMint `json:"event"`
	Minted int64                    `json:"minted"`
}

// --- Dispatch ---

func (p *Processor) dispatch(evt event.Event) (interface{}, error) {
	switch e := evt.(type) {
	case *event.OrderSubmit:
		return p.handleOrderSubmit(e)
	case *event.OrderCancelRequest:
		return e, p.manager.Gateway().InitiateCancel(e.UserID, e.OrderID)
	case *event.OrderCancelFinalize:
		return e, p.manager.Gateway().FinalizeCancel(e.CallerID, e.OrderID, e.Timestamp.Unix())
	case *event.OrderAdminCancel:
		return e, p.manager.Gateway().AdminCancel(e.CallerID, e.OrderID, e.Timestamp.Unix())
	case *event.OrderSettle:
		return p.handleOrderSettle(e)
	case *event.OrderRepoint:
		return e, p.manager.RepointOrder(e.CallerID, e.OrderID)
	case *event.MarketCreate:
		return e, p.handleMarketCreate(e)
	case *event.MarketActivate:
		return e, p.handleMarketAdmin(e.CallerID, func() error { return p.markets.Activate(e.Market) })
	case *event.MarketDeactivate:
		return e, p.handleMarketAdmin(e.CallerID, func() error { return p.markets.Deactivate(e.Market) })
	case *event.MarketFreezePrice:
		return e, p.handleMarketAdmin(e.CallerID, func() error { return p.markets.SetDeactivatedPrice(e.Market, e.Price) })
	case *event.MarketDelist:
		return p.handleMarketDelist(e)
	case *event.RateAppend:
		return e, p.handleMarketAdmin(e.CallerID, func() error { return p.schedule.Append(e.Rate, e.ValidFrom) })
	case *event.RateSetActive:
		return e, p.handleMarketAdmin(e.CallerID, func() error { return p.schedule.SetActive(e.Index, e.Active) })
	case *event.EscrowDelayedMint:
		return p.handleEscrowDelayedMint(e)
	case *event.EscrowAdminApprove:
		return e, p.limiter.AdminApprovedMint(e.CallerID, e.UserID, e.Amount, e.Timestamp.Unix())
	case *event.EscrowAdminDisapprove:
		return e, p.limiter.AdminDisapproveMint(e.CallerID, e.UserID, e.Amount)
	case *event.EscrowResetDaily:
		return e, p.limiter.ResetDailyMintedTokens(e.CallerID)
	case *event.TokenDeposit:
		return e, p.tokens.Mint(e.UserID, e.Amount, "deposit:"+e.DepositID.String(), e.Timestamp.Unix())
	case *event.TokenWithdrawal:
		return e, p.tokens.Burn(e.UserID, e.Amount, "withdrawal:"+e.WithdrawalID.String(), e.Timestamp.Unix())
	default:
		return nil, fmt.Errorf("unknown event type: %T", evt)
	}
}

func (p *Processor) handleOrderSubmit(e *event.OrderSubmit) (interface{}, error) {
	o, err := p.manager.Submit(e.UserID, order.SubmitParams{
		Market:         e.Market,
		CloseShares:    e.CloseShares,
		OpenAmount:     e.OpenAmount,
		AmountInShares: e.AmountInShares,
		Direction:      parseDirection(e.Direction),
		Leverage:       e.Leverage,
		PriceAbove:     e.PriceAbove,
		PriceBelow:     e.PriceBelow,
		GoodFrom:       e.GoodFrom,
		GoodUntil:      e.GoodUntil,
	}, e.Timestamp.Unix())
	if err != nil {
		return nil, err
	}
	return &submitPayload{Event: e, Order: o}, nil
}

func (p *Processor) handleOrderSettle(e *event.OrderSettle) (interface{}, error) {
	result, err := p.manager.Settle(e.CallerID, e.OrderID, engine.Inputs{
		Price:           e.Price,
		UnadjustedPrice: e.UnadjustedPrice,
		Spread:          e.Spread,
		PositionTime:    e.PositionTime,
		LiquidationTime: e.LiquidationTime,
	})
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		m := result.Position.Market
		p.metrics.SettlementsApplied.WithLabelValues(m, result.Outcome.String()).Inc()
		if result.Payout > 0 {
			p.metrics.SettlementPayout.WithLabelValues(m).Add(float64(result.Payout))
		}
		if result.InterestCharged > 0 {
			p.metrics.SettlementInterest.WithLabelValues(m).Add(float64(result.InterestCharged))
		}
		if result.Outcome == engine.OutcomeLiquidated {
			p.metrics.LiquidationsTotal.WithLabelValues(m).Inc()
		}
		if result.Escrowed > 0 {
			p.metrics.EscrowDiverted.Add(float64(result.Escrowed))
		}
		p.metrics.DailyMintedTokens.Set(float64(p.limiter.MintedToday()))
		p.metrics.CirculatingSupply.Set(float64(p.tracker.CirculatingSupply()))
	}

	return &settlePayload{Event: e, Result: result}, nil
}

func (p *Processor) handleMarketCreate(e *event.MarketCreate) error {
	if err := auth.Require(p.registry, auth.RoleAdmin, e.CallerID); err != nil {
		return err
	}
	p.markets.Create(e.Market, e.Timestamp.Unix())
	return nil
}

// handleMarketAdmin wraps market and rate mutations behind the admin
// role check. The controller and schedule themselves are caller-blind.
func (p *Processor) handleMarketAdmin(caller uuid.UUID, fn func() error) error {
	if err := auth.Require(p.registry, auth.RoleAdmin, caller); err != nil {
		return err
	}
	return fn()
}

func (p *Processor) handleMarketDelist(e *event.MarketDelist) (interface{}, error) {
	report, err := p.manager.Delist(e.CallerID, e.Market, e.Budget, e.Timestamp.Unix())
	// A partial pass is still a processed event: the report records how
	// far it got and the caller repeats the event until complete.
	if err != nil && err != engine.ErrDelistIncomplete {
		return nil, err
	}
	if p.metrics != nil && report != nil {
		result := "complete"
		if !report.Complete {
			result = "partial"
		}
		p.metrics.DelistPassesTotal.WithLabelValues(e.Market, result).Inc()
		p.metrics.DelistPositionsDone.WithLabelValues(e.Market).Add(float64(report.Closed))
	}
	return &delistPayload{Event: e, Report: report}, nil
}

func (p *Processor) handleEscrowDelayedMint(e *event.EscrowDelayedMint) (interface{}, error) {
	minted, err := p.limiter.DelayedMint(e.UserID, e.Timestamp.Unix())
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.EscrowReleased.WithLabelValues("delayed").Add(float64(minted))
	}
	return &mintPayload{Event: e, Minted: minted}, nil
}

func parseDirection(s string) position.Direction {
	switch s {
	case "long":
		return position.DirectionLong
	case "short":
		return position.DirectionShort
	default:
		return position.DirectionNone
	}
}
