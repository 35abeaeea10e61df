package escrow

import (
	"math/big"
	"strings"
)

// Status represents the lifecycle states of an escrow record. Active is the
// only non-terminal state besides Disputed; every other value is terminal and
// retained for audit queries.
type Status uint8

const (
	StatusActive Status = iota
	StatusDisputed
	StatusReleased
	StatusRefunded
	StatusAutoReleased
	StatusResolvedForRecipient
	StatusResolvedForSender
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDisputed, StatusReleased, StatusRefunded,
		StatusAutoReleased, StatusResolvedForRecipient, StatusResolvedForSender:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusReleased, StatusRefunded, StatusAutoReleased,
		StatusResolvedForRecipient, StatusResolvedForSender:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDisputed:
		return "disputed"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	case StatusAutoReleased:
		return "auto_released"
	case StatusResolvedForRecipient:
		return "resolved_for_recipient"
	case StatusResolvedForSender:
		return "resolved_for_sender"
	default:
		return "unknown"
	}
}

// DisputePolicy selects which participants may open a dispute.
type DisputePolicy uint8

const (
	// DisputeBySender restricts dispute initiation to the escrow sender.
	DisputeBySender DisputePolicy = iota
	// DisputeByEither allows either the sender or the recipient to initiate.
	DisputeByEither
)

// AutoResolvePolicy selects the beneficiary when an expired dispute is
// auto-resolved through CheckDisputeTimeout.
type AutoResolvePolicy uint8

const (
	AutoResolveFavorRecipient AutoResolvePolicy = iota
	AutoResolveFavorSender
)

// Escrow captures the value-bearing record managed by the engine. Amount,
// Sender, Recipient and Asset are fixed at creation; DisputePeriod may be
// adjusted only while the record is active and undisputed. HasDispute is
// monotonic: once set it never resets, which is what prevents re-disputing a
// record whose dispute was already resolved.
type Escrow struct {
	ID              uint64
	Sender          [20]byte
	Recipient       [20]byte
	Asset           string
	Amount          *big.Int
	CreatedAt       int64
	TimeoutDuration int64
	DisputePeriod   int64
	Status          Status
	HasDispute      bool
}

// TimeoutAt returns the ledger timestamp at which the escrow becomes eligible
// for auto-release. The boundary is inclusive.
func (e *Escrow) TimeoutAt() int64 {
	if e == nil {
		return 0
	}
	return e.CreatedAt + e.TimeoutDuration
}

// Clone returns a deep copy of the escrow object so callers can safely mutate
// the copy without affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Dispute is the one-to-one companion of an escrow once a dispute exists. It
// is immutable after creation and shares the escrow's lifetime.
type Dispute struct {
	EscrowID      uint64
	InitiatedBy   [20]byte
	InitiatedAt   int64
	DisputePeriod int64
	Reason        string
}

// ExpiresAt returns the ledger timestamp at which the dispute window closes.
func (d *Dispute) ExpiresAt() int64 {
	if d == nil {
		return 0
	}
	return d.InitiatedAt + d.DisputePeriod
}

// Clone returns a copy of the dispute record.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// AdminConfig is the per-engine administrative record: the admin principal,
// the fee charged to open a dispute, and the contract-wide pause flag. One
// record exists per engine instance; its presence marks the gate initialised.
type AdminConfig struct {
	Admin      [20]byte
	DisputeFee *big.Int
	Paused     bool
}

// Clone returns a deep copy of the admin record.
func (c *AdminConfig) Clone() *AdminConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.DisputeFee != nil {
		clone.DisputeFee = new(big.Int).Set(c.DisputeFee)
	} else {
		clone.DisputeFee = big.NewInt(0)
	}
	return &clone
}

// NormalizeAsset canonicalises an asset symbol to its uppercase form.
func NormalizeAsset(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", ErrInvalidAsset
	}
	return trimmed, nil
}

// SanitizeEscrow validates and normalises the supplied escrow record,
// returning a cloned instance with canonical asset casing and a non-nil
// amount. The function does not mutate the original value.
func SanitizeEscrow(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, ErrNotFound
	}
	clone := e.Clone()
	asset, err := NormalizeAsset(clone.Asset)
	if err != nil {
		return nil, err
	}
	clone.Asset = asset
	if clone.Amount == nil || clone.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if clone.TimeoutDuration <= 0 {
		return nil, ErrInvalidTimeout
	}
	if clone.DisputePeriod <= 0 || clone.DisputePeriod > clone.TimeoutDuration {
		return nil, ErrInvalidDisputePeriod
	}
	if !clone.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return clone, nil
}
