package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountScope is the top-level account namespace.
type AccountScope uint8

const (
	AccountScopeUser AccountScope = iota
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType identifies the account purpose within a scope.
type AccountSubType uint8

const (
	// User sub-types.
	SubTypeWallet AccountSubType = iota
	SubTypeOrderHold

	// System sub-types.
	SubTypeSystemReserve

	// External boundary sub-types. Mints draw from the mint sink and
	// burns flow into the burn sink, so the ledger stays zero-sum and
	// supply changes are auditable from the journal alone.
	SubTypeExternalMint
	SubTypeExternalBurn
)

// AccountKey is the in-memory balance key. Small and comparable so it can
// serve directly as a map key.
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // user UUID; zero for system/external accounts
	SubType  AccountSubType
}

// NewUserAccountKey creates a key for user-scoped accounts.
func NewUserAccountKey(userID uuid.UUID, subType AccountSubType) AccountKey {
	return AccountKey{
		Scope:    AccountScopeUser,
		EntityID: userID,
		SubType:  subType,
	}
}

// NewSystemAccountKey creates a key for system accounts.
func NewSystemAccountKey(subType AccountSubType) AccountKey {
	return AccountKey{
		Scope:   AccountScopeSystem,
		SubType: subType,
	}
}

// NewExternalAccountKey creates a key for the mint/burn boundary accounts.
func NewExternalAccountKey(subType AccountSubType) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
	}
}

// AccountPath returns the canonical string form used in storage and logs,
// e.g. "user:7f3c...:wallet" or "external:mint".
func (k AccountKey) AccountPath() string {
	switch k.Scope {
	case AccountScopeUser:
		uid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("user:%s:%s", uid.String(), k.subTypeName())
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s", k.subTypeName())
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s", k.subTypeName())
	}
	return "unknown"
}

// ParseAccountPath is the inverse of AccountPath. Used when restoring
// balances from a snapshot.
func ParseAccountPath(path string) (AccountKey, error) {
	parts := strings.Split(path, ":")
	switch {
	case len(parts) == 3 && parts[0] == "user":
		uid, err := uuid.Parse(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse account %q: %w", path, err)
		}
		sub, err := parseSubType(parts[2])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse account %q: %w", path, err)
		}
		return NewUserAccountKey(uid, sub), nil
	case len(parts) == 2 && parts[0] == "system":
		sub, err := parseSubType(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse account %q: %w", path, err)
		}
		return NewSystemAccountKey(sub), nil
	case len(parts) == 2 && parts[0] == "external":
		sub, err := parseSubType(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse account %q: %w", path, err)
		}
		return NewExternalAccountKey(sub), nil
	}
	return AccountKey{}, fmt.Errorf("parse account %q: unknown scope", path)
}

// MarshalText lets AccountKey serve as a JSON map key in snapshots.
func (k AccountKey) MarshalText() ([]byte, error) {
	return []byte(k.AccountPath()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *AccountKey) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountPath(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeWallet:
		return "wallet"
	case SubTypeOrderHold:
		return "order_hold"
	case SubTypeSystemReserve:
		return "reserve"
	case SubTypeExternalMint:
		return "mint"
	case SubTypeExternalBurn:
		return "burn"
	default:
		return "unknown"
	}
}

func parseSubType(name string) (AccountSubType, error) {
	switch name {
	case "wallet":
		return SubTypeWallet, nil
	case "order_hold":
		return SubTypeOrderHold, nil
	case "reserve":
		return SubTypeSystemReserve, nil
	case "mint":
		return SubTypeExternalMint, nil
	case "burn":
		return SubTypeExternalBurn, nil
	}
	return 0, fmt.Errorf("unknown account sub-type %q", name)
}
