package engine

import (
	"github.com/google/uuid"

	"SynthLedger/internal/auth"
	"SynthLedger/internal/order"
	"SynthLedger/internal/position"
)

// Manager is the settlement entry point. It authorizes callers, tracks
// the current engine version and supports swapping the engine in place.
// Orders created against a prior version are rejected until an operator
// re-points or re-submits them.
type Manager struct {
	gateway     *order.Gateway
	permissions auth.PermissionRegistry
	current     *Engine
	version     int64
}

func NewManager(gateway *order.Gateway, permissions auth.PermissionRegistry, e *Engine) *Manager {
	return &Manager{
		gateway:     gateway,
		permissions: permissions,
		current:     e,
		version:     1,
	}
}

// Version returns the current engine version.
func (m *Manager) Version() int64 { return m.version }

// Gateway exposes the order gateway for the ingestion layer.
func (m *Manager) Gateway() *order.Gateway { return m.gateway }

// Submit forwards to the gateway and stamps the order with the current
// engine version.
func (m *Manager) Submit(user uuid.UUID, p order.SubmitParams, now int64) (*order.Order, error) {
	o, err := m.gateway.Submit(user, p, now)
	if err != nil {
		return nil, err
	}
	o.EngineVersion = m.version
	return o, nil
}

// Settle runs the settlement algorithm for one order. Only authorized
// settlers may call it, exactly once per order.
func (m *Manager) Settle(caller uuid.UUID, orderID int64, in Inputs) (*Result, error) {
	if err := auth.Require(m.permissions, auth.RoleSettler, caller); err != nil {
		return nil, err
	}
	o := m.gateway.Store().Get(orderID)
	if o == nil {
		return nil, order.ErrUnknownOrder
	}
	if o.EngineVersion != m.version {
		return nil, ErrStaleEngineVersion
	}
	return m.current.Settle(o, in)
}

// Swap atomically replaces the engine implementation and bumps the
// version. Pending orders keep their old version stamp.
func (m *Manager) Swap(caller uuid.UUID, e *Engine) error {
	if err := auth.Require(m.permissions, auth.RoleAdmin, caller); err != nil {
		return err
	}
	m.current = e
	m.version++
	return nil
}

// RepointOrder migrates a live order to the current engine version
// after an explicit operator decision.
func (m *Manager) RepointOrder(caller uuid.UUID, orderID int64) error {
	if err := auth.Require(m.permissions, auth.RoleAdmin, caller); err != nil {
		return err
	}
	o := m.gateway.Store().Get(orderID)
	if o == nil {
		return order.ErrUnknownOrder
	}
	if o.Status.Terminal() {
		return order.ErrNotPending
	}
	o.EngineVersion = m.version
	return nil
}

// RestoreVersion sets the engine version during snapshot recovery.
func (m *Manager) RestoreVersion(v int64) {
	m.version = v
}

// Delist runs one bounded force-close pass over a delisted market.
func (m *Manager) Delist(caller uuid.UUID, symbol string, budget int, now int64) (*DelistReport, error) {
	if err := auth.Require(m.permissions, auth.RoleAdmin, caller); err != nil {
		return nil, err
	}
	return m.current.DelistMarket(symbol, budget, now)
}

// Positions exposes the book for the query layer.
func (m *Manager) Positions() *position.Book {
	return m.current.positions
}
