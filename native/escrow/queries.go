package escrow

// Query operations are pure reads: no authorization, no side effects.

// GetEscrow returns the escrow record for the given id.
func (e *Engine) GetEscrow(id uint64) (*Escrow, error) {
	return e.loadEscrow(id)
}

// EscrowExists reports whether a record was ever created under the id.
func (e *Engine) EscrowExists(id uint64) bool {
	if e == nil || e.state == nil {
		return false
	}
	_, ok := e.state.EscrowGet(id)
	return ok
}

// EscrowCount returns the number of escrows ever created by this engine
// instance, terminal records included.
func (e *Engine) EscrowCount() uint64 {
	if e == nil || e.state == nil {
		return 0
	}
	return e.state.EscrowCount()
}

// GetAllEscrows returns every record, ordered by id.
func (e *Engine) GetAllEscrows() []*Escrow {
	if e == nil || e.state == nil {
		return nil
	}
	count := e.state.EscrowCount()
	out := make([]*Escrow, 0, count)
	for id := uint64(1); id <= count; id++ {
		if esc, ok := e.state.EscrowGet(id); ok {
			out = append(out, esc)
		}
	}
	return out
}

// GetEscrowsByStatus returns every record currently in the given status,
// served from the incrementally maintained status index.
func (e *Engine) GetEscrowsByStatus(status Status) []*Escrow {
	if e == nil || e.state == nil {
		return nil
	}
	ids := e.state.EscrowIDsByStatus(status)
	out := make([]*Escrow, 0, len(ids))
	for _, id := range ids {
		if esc, ok := e.state.EscrowGet(id); ok {
			out = append(out, esc)
		}
	}
	return out
}

// GetEscrowsByParticipant returns every record in which the address appears as
// sender or recipient.
func (e *Engine) GetEscrowsByParticipant(addr [20]byte) []*Escrow {
	if e == nil || e.state == nil {
		return nil
	}
	ids := e.state.EscrowIDsByParticipant(addr)
	out := make([]*Escrow, 0, len(ids))
	for _, id := range ids {
		if esc, ok := e.state.EscrowGet(id); ok {
			out = append(out, esc)
		}
	}
	return out
}

// CanDispute reports whether a dispute may still be opened: the record must be
// active and never previously disputed.
func (e *Engine) CanDispute(id uint64) bool {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return false
	}
	return esc.Status == StatusActive && !esc.HasDispute
}

// GetDisputeInfo returns the dispute record for the escrow, if one exists.
func (e *Engine) GetDisputeInfo(id uint64) (*Dispute, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	esc, ok := e.state.EscrowGet(id)
	if !ok || !esc.HasDispute {
		return nil, false
	}
	return e.state.DisputeGet(id)
}
