package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"custodia/core/events"
	"custodia/core/types"
	"custodia/native/common"
)

const pauseModuleName = "escrow"

var (
	errNilState  = errors.New("escrow engine: state not configured")
	errNilLedger = errors.New("escrow engine: token ledger not configured")
)

// EngineState is the durable storage surface the engine mutates. All reads go
// through this interface at the start of each operation, so concurrent callers
// serialized by the hosting environment always observe current state.
type EngineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(id uint64) (*Escrow, bool)
	EscrowCount() uint64
	NextEscrowID() (uint64, error)
	EscrowIDsByStatus(Status) []uint64
	EscrowIDsByParticipant(addr [20]byte) []uint64
	DisputePut(*Dispute) error
	DisputeGet(escrowID uint64) (*Dispute, bool)
	EscrowCredit(id uint64, asset string, amount *big.Int) error
	EscrowDebit(id uint64, asset string, amount *big.Int) error
	AdminConfigGet() (*AdminConfig, bool)
	AdminConfigPut(*AdminConfig) error
	FeeAccrue(asset string, amount *big.Int) error
}

// TokenLedger moves value between principals. The engine treats transfers as
// exactly-once: preconditions are checked before any transfer is attempted and
// the record's status is flipped to its terminal value before custody leaves
// the vault.
type TokenLedger interface {
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
	Balance(asset string, addr [20]byte) (*big.Int, error)
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine owns the lifecycle of escrow records: creation pulls funds into the
// vault, release/refund/timeout settle them out, and the dispute sub-flow
// arbitrates contested settlements. External collaborators (state, ledger,
// authorizer, emitter, clock) are injected so independent instances can run
// side by side.
type Engine struct {
	state       EngineState
	ledger      TokenLedger
	emitter     events.Emitter
	auth        common.Authorizer
	vault       [20]byte
	nowFn       func() int64
	disputeBy   DisputePolicy
	autoResolve AutoResolvePolicy
}

// NewEngine creates an escrow engine with a no-op emitter, an allow-all
// authorizer and the default policies (sender-only disputes, expired disputes
// resolve for the recipient).
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		auth:    common.AllowAll{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state EngineState) { e.state = state }

// SetLedger configures the token transfer service used to move value.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetVault configures the custody address holding escrowed funds.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetAuthorizer configures the authorization capability. Passing nil resets it
// to allow-all, for hosts that verify callers upfront.
func (e *Engine) SetAuthorizer(auth common.Authorizer) {
	if auth == nil {
		e.auth = common.AllowAll{}
		return
	}
	e.auth = auth
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetDisputePolicy selects which participants may open disputes.
func (e *Engine) SetDisputePolicy(p DisputePolicy) { e.disputeBy = p }

// SetAutoResolvePolicy selects the beneficiary of expired-dispute
// auto-resolution.
func (e *Engine) SetAutoResolvePolicy(p AutoResolvePolicy) { e.autoResolve = p }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// IsPaused implements common.PauseView against the stored admin record. An
// uninitialised gate is never paused.
func (e *Engine) IsPaused(module string) bool {
	if e == nil || e.state == nil || module != pauseModuleName {
		return false
	}
	cfg, ok := e.state.AdminConfigGet()
	if !ok {
		return false
	}
	return cfg.Paused
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadEscrow(id uint64) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	esc, ok := e.state.EscrowGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

func (e *Engine) storeEscrow(esc *Escrow) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.EscrowPut(esc)
}

// Create pulls amount of asset from the sender into the vault and persists a
// new active escrow record. Every precondition is validated before the
// transfer, so a failed call leaves no state behind.
func (e *Engine) Create(sender, recipient [20]byte, asset string, amount *big.Int, timeoutDuration, disputePeriod int64) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if err := common.Guard(e, pauseModuleName); err != nil {
		return nil, err
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if timeoutDuration <= 0 {
		return nil, ErrInvalidTimeout
	}
	if disputePeriod <= 0 || disputePeriod > timeoutDuration {
		return nil, ErrInvalidDisputePeriod
	}
	if sender == recipient {
		return nil, ErrSameParty
	}
	if err := e.auth.Require(sender); err != nil {
		return nil, fmt.Errorf("escrow: sender authorization: %w", err)
	}
	balance, err := e.ledger.Balance(normalized, sender)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amt) < 0 {
		return nil, ErrInsufficientFunds
	}
	id, err := e.state.NextEscrowID()
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(normalized, sender, e.vault, amt); err != nil {
		return nil, err
	}
	if err := e.state.EscrowCredit(id, normalized, amt); err != nil {
		return nil, err
	}
	esc := &Escrow{
		ID:              id,
		Sender:          sender,
		Recipient:       recipient,
		Asset:           normalized,
		Amount:          amt,
		CreatedAt:       e.now(),
		TimeoutDuration: timeoutDuration,
		DisputePeriod:   disputePeriod,
		Status:          StatusActive,
		HasDispute:      false,
	}
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(esc))
	return esc.Clone(), nil
}

// Release settles an active escrow in favour of the recipient. Only the
// sender may release; a disputed escrow cannot be released this way.
func (e *Engine) Release(id uint64) (*Escrow, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusActive {
		return nil, ErrNotActive
	}
	if err := e.auth.Require(esc.Sender); err != nil {
		return nil, fmt.Errorf("escrow: sender authorization: %w", err)
	}
	return e.settle(esc, esc.Recipient, StatusReleased, NewReleasedEvent)
}

// Refund returns an active escrow's funds to the sender. Only the sender may
// refund.
func (e *Engine) Refund(id uint64) (*Escrow, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusActive {
		return nil, ErrNotActive
	}
	if err := e.auth.Require(esc.Sender); err != nil {
		return nil, fmt.Errorf("escrow: sender authorization: %w", err)
	}
	return e.settle(esc, esc.Sender, StatusRefunded, NewRefundedEvent)
}

// CheckTimeout auto-releases an active escrow to the recipient once the
// timeout boundary is reached. The boundary is inclusive and anyone may crank
// the transition; the engine never fires on the passage of time alone.
func (e *Engine) CheckTimeout(id uint64) (*Escrow, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusActive {
		return nil, ErrNotActive
	}
	if e.now() < esc.TimeoutAt() {
		return nil, ErrTimeoutNotReached
	}
	return e.settle(esc, esc.Recipient, StatusAutoReleased, NewAutoReleasedEvent)
}

// settle flips the record to its terminal status before any value leaves the
// vault, closing the reentrancy window between the custody debit and the
// external transfer. Custody bookkeeping is debited per escrow id so the
// engine can never move more than the record's amount.
func (e *Engine) settle(esc *Escrow, beneficiary [20]byte, status Status, eventFn func(*Escrow) *types.Event) (*Escrow, error) {
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if !status.Terminal() {
		return nil, ErrInvalidStatus
	}
	amount := cloneBigInt(esc.Amount)
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	esc.Status = status
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	if err := e.state.EscrowDebit(esc.ID, esc.Asset, amount); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(esc.Asset, e.vault, beneficiary, amount); err != nil {
		return nil, err
	}
	e.emit(eventFn(esc))
	return esc.Clone(), nil
}
