package escrow

import (
	"fmt"
	"strings"

	"custodia/core/types"
	"custodia/native/common"
)

// InitiateDispute opens the dispute sub-flow for an active escrow. The
// dispute-exists check runs before the status check so a settled escrow whose
// dispute was already resolved reports "dispute already initiated" rather than
// "not active". Which participants may initiate is a policy choice: the
// default restricts initiation to the sender.
func (e *Engine) InitiateDispute(id uint64, initiator [20]byte, reason string) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e, pauseModuleName); err != nil {
		return nil, err
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if esc.HasDispute {
		return nil, ErrDisputeExists
	}
	if esc.Status != StatusActive {
		return nil, ErrNotActive
	}
	switch e.disputeBy {
	case DisputeByEither:
		if initiator != esc.Sender && initiator != esc.Recipient {
			return nil, ErrInvalidInitiator
		}
	default:
		if initiator != esc.Sender {
			return nil, ErrInvalidInitiator
		}
	}
	if err := e.auth.Require(initiator); err != nil {
		return nil, fmt.Errorf("escrow: initiator authorization: %w", err)
	}
	if err := e.collectDisputeFee(esc.Asset, initiator); err != nil {
		return nil, err
	}
	dispute := &Dispute{
		EscrowID:      esc.ID,
		InitiatedBy:   initiator,
		InitiatedAt:   e.now(),
		DisputePeriod: esc.DisputePeriod,
		Reason:        strings.TrimSpace(reason),
	}
	if err := e.state.DisputePut(dispute); err != nil {
		return nil, err
	}
	esc.Status = StatusDisputed
	esc.HasDispute = true
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	e.emit(NewDisputeInitiatedEvent(esc, dispute))
	return esc.Clone(), nil
}

// collectDisputeFee pulls the configured fee from the initiator into the
// vault and accrues it to the fee pool. Disposition of collected fees is left
// to the operator.
func (e *Engine) collectDisputeFee(asset string, initiator [20]byte) error {
	cfg, ok := e.state.AdminConfigGet()
	if !ok || cfg.DisputeFee == nil || cfg.DisputeFee.Sign() <= 0 {
		return nil
	}
	if e.ledger == nil {
		return errNilLedger
	}
	fee := cloneBigInt(cfg.DisputeFee)
	balance, err := e.ledger.Balance(asset, initiator)
	if err != nil {
		return err
	}
	if balance.Cmp(fee) < 0 {
		return ErrInsufficientFunds
	}
	if err := e.ledger.Transfer(asset, initiator, e.vault, fee); err != nil {
		return err
	}
	return e.state.FeeAccrue(asset, fee)
}

// ResolveDisputeForRecipient settles a disputed escrow in the recipient's
// favour. While the dispute window is open the sender must authorize the
// resolution; once the window has elapsed the transition is open to any
// caller.
func (e *Engine) ResolveDisputeForRecipient(id uint64) (*Escrow, error) {
	return e.resolveDispute(id, true)
}

// ResolveDisputeForSender settles a disputed escrow in the sender's favour
// under the same window rules as ResolveDisputeForRecipient.
func (e *Engine) ResolveDisputeForSender(id uint64) (*Escrow, error) {
	return e.resolveDispute(id, false)
}

func (e *Engine) resolveDispute(id uint64, favorRecipient bool) (*Escrow, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusDisputed {
		return nil, ErrNotDisputed
	}
	dispute, ok := e.state.DisputeGet(id)
	if !ok {
		return nil, ErrDisputeMissing
	}
	if e.now() < dispute.ExpiresAt() {
		// Manual resolution inside the window needs the sender's consent;
		// expiry opens the transition to any caller.
		if err := e.auth.Require(esc.Sender); err != nil {
			return nil, fmt.Errorf("escrow: sender authorization: %w", err)
		}
	}
	return e.settleDispute(esc, favorRecipient)
}

// CheckDisputeTimeout auto-resolves a disputed escrow once the dispute window
// has expired. The beneficiary follows the engine's auto-resolve policy,
// favouring the recipient by default.
func (e *Engine) CheckDisputeTimeout(id uint64) (*Escrow, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusDisputed {
		return nil, ErrNotDisputed
	}
	dispute, ok := e.state.DisputeGet(id)
	if !ok {
		return nil, ErrDisputeMissing
	}
	if e.now() < dispute.ExpiresAt() {
		return nil, ErrDisputeWindowOpen
	}
	return e.settleDispute(esc, e.autoResolve != AutoResolveFavorSender)
}

// AdminResolveDispute is the emergency override: the admin may settle a
// disputed escrow in either direction regardless of the dispute window.
func (e *Engine) AdminResolveDispute(id uint64, favorRecipient bool) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok := e.state.AdminConfigGet()
	if !ok {
		return nil, ErrNotInitialized
	}
	if err := e.auth.Require(cfg.Admin); err != nil {
		return nil, fmt.Errorf("escrow: admin authorization: %w", err)
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusDisputed {
		return nil, ErrNotDisputed
	}
	if _, ok := e.state.DisputeGet(id); !ok {
		return nil, ErrDisputeMissing
	}
	return e.settleDispute(esc, favorRecipient)
}

func (e *Engine) settleDispute(esc *Escrow, favorRecipient bool) (*Escrow, error) {
	beneficiary := esc.Sender
	status := StatusResolvedForSender
	if favorRecipient {
		beneficiary = esc.Recipient
		status = StatusResolvedForRecipient
	}
	eventFn := func(updated *Escrow) *types.Event {
		return NewDisputeResolvedEvent(updated, beneficiary, favorRecipient)
	}
	return e.settle(esc, beneficiary, status, eventFn)
}

// UpdateDisputePeriod lets the sender adjust the dispute window of an active,
// undisputed escrow. The new period must stay within the timeout duration.
func (e *Engine) UpdateDisputePeriod(id uint64, newPeriod int64) (*Escrow, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if err := e.auth.Require(esc.Sender); err != nil {
		return nil, fmt.Errorf("escrow: sender authorization: %w", err)
	}
	if esc.Status != StatusActive {
		return nil, ErrNotActive
	}
	if esc.HasDispute {
		return nil, ErrDisputeExists
	}
	if newPeriod <= 0 || newPeriod > esc.TimeoutDuration {
		return nil, ErrInvalidDisputePeriod
	}
	oldPeriod := esc.DisputePeriod
	esc.DisputePeriod = newPeriod
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	e.emit(NewDisputePeriodUpdatedEvent(esc, oldPeriod))
	return esc.Clone(), nil
}
