package escrow

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"SynthLedger/internal/auth"
	"SynthLedger/internal/ledger"
)

var (
	ErrStillLocked = errors.New("escrow: time lock has not elapsed")
	ErrNoEscrow    = errors.New("escrow: no escrowed amount for user")
	ErrOverRelease = errors.New("escrow: release exceeds escrowed amount")
)

// Mode selects what happens when a payout exceeds the per-user limit.
type Mode int32

const (
	// ModeEscrowFull diverts the entire payout into escrow. A capped
	// settlement never partially pays.
	ModeEscrowFull Mode = iota
	// ModeEscrowExcess pays up to the limit and escrows the remainder.
	ModeEscrowExcess
)

// Config bounds the limiter. Zero PerUserLimit or DailyAggregateLimit
// disables that cap.
type Config struct {
	PerUserLimit        int64
	DailyAggregateLimit int64
	TimeLockPeriod      int64 // seconds
	Mode                Mode
}

// Record is one user's escrowed value. Additional escrows accumulate
// into the record and restart its time lock.
type Record struct {
	User      uuid.UUID
	Amount    int64
	Timestamp int64
}

// Outcome reports how a payout was split.
type Outcome struct {
	Minted   int64
	Escrowed int64
}

// Limiter gates settlement payouts: value within the caps mints
// directly, value beyond them lands in a time-locked escrow record
// released later by the user or by an administrator. Not thread-safe:
// mutation happens only inside the single-threaded settlement core.
type Limiter struct {
	cfg         Config
	tokens      ledger.TokenLedger
	permissions auth.PermissionRegistry
	records     map[uuid.UUID]*Record
	mintedToday int64
}

func NewLimiter(cfg Config, tokens ledger.TokenLedger, permissions auth.PermissionRegistry) *Limiter {
	return &Limiter{
		cfg:         cfg,
		tokens:      tokens,
		permissions: permissions,
		records:     make(map[uuid.UUID]*Record),
	}
}

// MintedToday returns the running daily aggregate.
func (l *Limiter) MintedToday() int64 { return l.mintedToday }

// Escrowed returns the user's current escrowed amount.
func (l *Limiter) Escrowed(user uuid.UUID) int64 {
	if r := l.records[user]; r != nil {
		return r.Amount
	}
	return 0
}

// Payout routes a settlement payout through the caps. Amounts within
// both the per-user and daily aggregate limits mint immediately;
// anything beyond diverts to escrow according to the configured mode.
func (l *Limiter) Payout(user uuid.UUID, amount int64, reference string, now int64) (Outcome, error) {
	if amount <= 0 {
		return Outcome{}, nil
	}

	capped := l.overPerUserLimit(amount) || l.overDailyLimit(amount)
	if !capped {
		if err := l.tokens.Mint(user, amount, reference, now); err != nil {
			return Outcome{}, err
		}
		l.mintedToday += amount
		return Outcome{Minted: amount}, nil
	}

	if l.cfg.Mode == ModeEscrowExcess {
		direct := l.directPortion(amount)
		if direct > 0 {
			if err := l.tokens.Mint(user, direct, reference, now); err != nil {
				return Outcome{}, err
			}
			l.mintedToday += direct
		}
		l.escrow(user, amount-direct, now)
		return Outcome{Minted: direct, Escrowed: amount - direct}, nil
	}

	l.escrow(user, amount, now)
	return Outcome{Escrowed: amount}, nil
}

func (l *Limiter) overPerUserLimit(amount int64) bool {
	return l.cfg.PerUserLimit > 0 && amount > l.cfg.PerUserLimit
}

func (l *Limiter) overDailyLimit(amount int64) bool {
	return l.cfg.DailyAggregateLimit > 0 && l.mintedToday+amount > l.cfg.DailyAggregateLimit
}

func (l *Limiter) directPortion(amount int64) int64 {
	direct := amount
	if l.cfg.PerUserLimit > 0 && direct > l.cfg.PerUserLimit {
		direct = l.cfg.PerUserLimit
	}
	if l.cfg.DailyAggregateLimit > 0 {
		room := l.cfg.DailyAggregateLimit - l.mintedToday
		if room < 0 {
			room = 0
		}
		if direct > room {
			direct = room
		}
	}
	return direct
}

func (l *Limiter) escrow(user uuid.UUID, amount int64, now int64) {
	r := l.records[user]
	if r == nil {
		r = &Record{User: user}
		l.records[user] = r
	}
	r.Amount += amount
	r.Timestamp = now
}

// DelayedMint releases the user's full escrowed amount once the time
// lock has elapsed. Succeeds exactly once per record.
func (l *Limiter) DelayedMint(user uuid.UUID, now int64) (int64, error) {
	r := l.records[user]
	if r == nil {
		return 0, ErrNoEscrow
	}
	if now < r.Timestamp+l.cfg.TimeLockPeriod {
		return 0, ErrStillLocked
	}
	amount := r.Amount
	if err := l.tokens.Mint(user, amount, escrowRef(user), now); err != nil {
		return 0, err
	}
	delete(l.records, user)
	return amount, nil
}

// AdminApprovedMint releases part or all of a user's escrow
// immediately, bypassing the time lock.
func (l *Limiter) AdminApprovedMint(caller, user uuid.UUID, amount int64, now int64) error {
	if err := auth.Require(l.permissions, auth.RoleAdmin, caller); err != nil {
		return err
	}
	r := l.records[user]
	if r == nil {
		return ErrNoEscrow
	}
	if amount > r.Amount {
		return ErrOverRelease
	}
	if err := l.tokens.Mint(user, amount, escrowRef(user), now); err != nil {
		return err
	}
	l.reduce(user, r, amount)
	return nil
}

// AdminDisapproveMint voids part or all of a user's escrow. The value
// is never minted.
func (l *Limiter) AdminDisapproveMint(caller, user uuid.UUID, amount int64) error {
	if err := auth.Require(l.permissions, auth.RoleAdmin, caller); err != nil {
		return err
	}
	r := l.records[user]
	if r == nil {
		return ErrNoEscrow
	}
	if amount > r.Amount {
		return ErrOverRelease
	}
	l.reduce(user, r, amount)
	return nil
}

func (l *Limiter) reduce(user uuid.UUID, r *Record, amount int64) {
	r.Amount -= amount
	if r.Amount == 0 {
		delete(l.records, user)
	}
}

// ResetDailyMintedTokens zeroes the aggregate counter. The reset is an
// operator action, there is no automatic wall-clock rollover.
func (l *Limiter) ResetDailyMintedTokens(caller uuid.UUID) error {
	if err := auth.Require(l.permissions, auth.RoleAdmin, caller); err != nil {
		return err
	}
	l.mintedToday = 0
	return nil
}

// Records returns all escrow records sorted by user id, for snapshots
// and the query API.
func (l *Limiter) Records() []Record {
	out := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].User.String() < out[j].User.String()
	})
	return out
}

// Restore installs limiter state during snapshot recovery.
func (l *Limiter) Restore(records []Record, mintedToday int64) {
	l.records = make(map[uuid.UUID]*Record, len(records))
	for _, r := range records {
		cp := r
		l.records[r.User] = &cp
	}
	l.mintedToday = mintedToday
}

func escrowRef(user uuid.UUID) string {
	return "escrow-" + user.String()
}
