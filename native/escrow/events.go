package escrow

import (
	"encoding/hex"
	"strconv"
	"strings"

	"custodia/core/types"
)

const (
	EventTypeEscrowCreated        = "escrow.created"
	EventTypeEscrowReleased       = "escrow.released"
	EventTypeEscrowRefunded       = "escrow.refunded"
	EventTypeEscrowAutoReleased   = "escrow.auto_released"
	EventTypeDisputeInitiated     = "escrow.disputed"
	EventTypeDisputeResolved      = "escrow.dispute_resolved"
	EventTypeDisputePeriodUpdated = "escrow.dispute_period_updated"
)

// NewCreatedEvent returns the canonical event payload for a newly created
// escrow.
func NewCreatedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowCreated, e) }

// NewReleasedEvent returns the canonical event payload for a release of escrow
// funds to the recipient.
func NewReleasedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowReleased, e) }

// NewRefundedEvent returns the canonical event payload for an escrow refund to
// the sender.
func NewRefundedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowRefunded, e) }

// NewAutoReleasedEvent returns the canonical event payload emitted when the
// timeout safety valve releases funds to the recipient.
func NewAutoReleasedEvent(e *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowAutoReleased, e)
}

// NewDisputeInitiatedEvent returns the payload emitted when a dispute is
// opened against an escrow.
func NewDisputeInitiatedEvent(e *Escrow, d *Dispute) *types.Event {
	evt := newEscrowEvent(EventTypeDisputeInitiated, e)
	if d == nil {
		return evt
	}
	evt.Attributes["initiatedBy"] = hex.EncodeToString(d.InitiatedBy[:])
	evt.Attributes["initiatedAt"] = strconv.FormatInt(d.InitiatedAt, 10)
	evt.Attributes["disputePeriod"] = strconv.FormatInt(d.DisputePeriod, 10)
	if reason := strings.TrimSpace(d.Reason); reason != "" {
		evt.Attributes["reason"] = reason
	}
	return evt
}

// NewDisputeResolvedEvent returns the payload emitted when a dispute reaches a
// terminal outcome. The beneficiary attribute names the party receiving the
// escrowed funds.
func NewDisputeResolvedEvent(e *Escrow, beneficiary [20]byte, favorRecipient bool) *types.Event {
	evt := newEscrowEvent(EventTypeDisputeResolved, e)
	evt.Attributes["beneficiary"] = hex.EncodeToString(beneficiary[:])
	evt.Attributes["favorRecipient"] = strconv.FormatBool(favorRecipient)
	return evt
}

// NewDisputePeriodUpdatedEvent returns the payload emitted when the sender
// tightens or widens the dispute window of an active escrow.
func NewDisputePeriodUpdatedEvent(e *Escrow, oldPeriod int64) *types.Event {
	evt := newEscrowEvent(EventTypeDisputePeriodUpdated, e)
	evt.Attributes["oldDisputePeriod"] = strconv.FormatInt(oldPeriod, 10)
	return evt
}

func newEscrowEvent(eventType string, e *Escrow) *types.Event {
	attrs := make(map[string]string)
	if e == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeEscrow(e)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["sender"] = hex.EncodeToString(sanitized.Sender[:])
	attrs["recipient"] = hex.EncodeToString(sanitized.Recipient[:])
	attrs["asset"] = sanitized.Asset
	attrs["amount"] = sanitized.Amount.String()
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	attrs["timeoutAt"] = strconv.FormatInt(sanitized.TimeoutAt(), 10)
	attrs["status"] = sanitized.Status.String()
	return &types.Event{Type: eventType, Attributes: attrs}
}
