package escrow

import (
	"errors"
	"math/big"
	"testing"

	"custodia/native/common"
)

func TestInitiateDispute(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	h.now = 2000

	disputed, err := h.engine.InitiateDispute(esc.ID, h.sender, "item never arrived")
	if err != nil {
		t.Fatalf("initiate dispute: %v", err)
	}
	if disputed.Status != StatusDisputed {
		t.Fatalf("expected disputed, got %v", disputed.Status)
	}
	if !disputed.HasDispute {
		t.Fatalf("dispute flag must be set")
	}
	info, ok := h.engine.GetDisputeInfo(esc.ID)
	if !ok {
		t.Fatalf("dispute info must exist after initiation")
	}
	if info.InitiatedBy != h.sender || info.InitiatedAt != 2000 || info.Reason != "item never arrived" {
		t.Fatalf("dispute record mismatch: %+v", info)
	}
	if info.ExpiresAt() != 2000+esc.DisputePeriod {
		t.Fatalf("dispute window expires at %d, want %d", info.ExpiresAt(), 2000+esc.DisputePeriod)
	}
	if h.emitter.last() != EventTypeDisputeInitiated {
		t.Fatalf("expected dispute event, got %q", h.emitter.last())
	}
}

func TestDisputeIsOneShot(t *testing.T) {
	// Scenario: a second dispute on the same escrow fails, even after the
	// first one is resolved.
	h := newTestHarness(t)
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "first"); err != nil {
		t.Fatalf("initiate dispute: %v", err)
	}

	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "second"); !errors.Is(err, ErrDisputeExists) {
		t.Fatalf("expected dispute-exists, got %v", err)
	}
	if _, err := h.engine.ResolveDisputeForRecipient(esc.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "third"); !errors.Is(err, ErrDisputeExists) {
		t.Fatalf("dispute flag survives resolution, got %v", err)
	}
}

func TestDisputeInitiatorPolicy(t *testing.T) {
	h := newTestHarness(t)
	h.auth.allowed[h.recv] = true
	esc := h.create(t)

	if _, err := h.engine.InitiateDispute(esc.ID, h.recv, "x"); !errors.Is(err, ErrInvalidInitiator) {
		t.Fatalf("sender-only policy must reject the recipient, got %v", err)
	}
	stranger := newTestAddress(0x99)
	h.auth.allowed[stranger] = true
	if _, err := h.engine.InitiateDispute(esc.ID, stranger, "x"); !errors.Is(err, ErrInvalidInitiator) {
		t.Fatalf("strangers can never dispute, got %v", err)
	}

	h.engine.SetDisputePolicy(DisputeByEither)
	if _, err := h.engine.InitiateDispute(esc.ID, stranger, "x"); !errors.Is(err, ErrInvalidInitiator) {
		t.Fatalf("either-party policy still excludes strangers, got %v", err)
	}
	if _, err := h.engine.InitiateDispute(esc.ID, h.recv, "late delivery"); err != nil {
		t.Fatalf("either-party policy admits the recipient: %v", err)
	}
}

func TestDisputeRequiresInitiatorAuthorization(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	h.auth.allowed = map[[20]byte]bool{}
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if h.engine.CanDispute(esc.ID) != true {
		t.Fatalf("escrow must remain disputable after auth failure")
	}
}

func TestDisputeFeeCollection(t *testing.T) {
	h := newTestHarness(t)
	admin := newTestAddress(0xAD)
	h.auth.allowed[admin] = true
	if err := h.engine.Initialize(admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := h.engine.SetDisputeFee(big.NewInt(25)); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	esc := h.create(t)

	before, _ := h.ledger.Balance("GOLD", h.sender)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("initiate dispute: %v", err)
	}
	after, _ := h.ledger.Balance("GOLD", h.sender)
	paid := new(big.Int).Sub(before, after)
	if paid.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected fee 25 debited, got %s", paid)
	}
	if pool := h.state.fees["GOLD"]; pool == nil || pool.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("fee pool should hold 25, got %v", pool)
	}
}

func TestDisputeFeeInsufficientBalance(t *testing.T) {
	h := newTestHarness(t)
	admin := newTestAddress(0xAD)
	h.auth.allowed[admin] = true
	if err := h.engine.Initialize(admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	esc := h.create(t)
	if err := h.engine.SetDisputeFee(big.NewInt(100_000)); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds for fee, got %v", err)
	}
	if h.engine.CanDispute(esc.ID) != true {
		t.Fatalf("failed fee collection must leave the escrow disputable")
	}
}

func TestResolveDisputeWithinWindowRequiresSender(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	h.auth.allowed = map[[20]byte]bool{}
	if _, err := h.engine.ResolveDisputeForRecipient(esc.ID); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("within the window only the sender resolves, got %v", err)
	}

	h.auth.allowed[h.sender] = true
	resolved, err := h.engine.ResolveDisputeForSender(esc.ID)
	if err != nil {
		t.Fatalf("resolve for sender: %v", err)
	}
	if resolved.Status != StatusResolvedForSender {
		t.Fatalf("expected resolved-for-sender, got %v", resolved.Status)
	}
	senderBal, _ := h.ledger.Balance("GOLD", h.sender)
	if senderBal.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("sender refund mismatch, got %s", senderBal)
	}
	if h.emitter.last() != EventTypeDisputeResolved {
		t.Fatalf("expected resolved event, got %q", h.emitter.last())
	}
}

func TestResolveDisputeAfterWindowOpenToAnyone(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	info, _ := h.engine.GetDisputeInfo(esc.ID)
	h.now = info.ExpiresAt()
	h.auth.allowed = map[[20]byte]bool{}

	resolved, err := h.engine.ResolveDisputeForRecipient(esc.ID)
	if err != nil {
		t.Fatalf("resolve after window: %v", err)
	}
	if resolved.Status != StatusResolvedForRecipient {
		t.Fatalf("expected resolved-for-recipient, got %v", resolved.Status)
	}
	recvBal, _ := h.ledger.Balance("GOLD", h.recv)
	if recvBal.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("recipient payout mismatch, got %s", recvBal)
	}
}

func TestResolveRequiresDisputedStatus(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	if _, err := h.engine.ResolveDisputeForRecipient(esc.ID); !errors.Is(err, ErrNotDisputed) {
		t.Fatalf("resolving an active escrow must fail, got %v", err)
	}
}

func TestCheckDisputeTimeout(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	info, _ := h.engine.GetDisputeInfo(esc.ID)

	h.now = info.ExpiresAt() - 1
	if _, err := h.engine.CheckDisputeTimeout(esc.ID); !errors.Is(err, ErrDisputeWindowOpen) {
		t.Fatalf("expected window-open before expiry, got %v", err)
	}

	h.now = info.ExpiresAt()
	h.auth.allowed = map[[20]byte]bool{}
	resolved, err := h.engine.CheckDisputeTimeout(esc.ID)
	if err != nil {
		t.Fatalf("dispute timeout crank: %v", err)
	}
	if resolved.Status != StatusResolvedForRecipient {
		t.Fatalf("default auto-resolution favors the recipient, got %v", resolved.Status)
	}
}

func TestCheckDisputeTimeoutFavorSenderPolicy(t *testing.T) {
	h := newTestHarness(t)
	h.engine.SetAutoResolvePolicy(AutoResolveFavorSender)
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	info, _ := h.engine.GetDisputeInfo(esc.ID)
	h.now = info.ExpiresAt()

	resolved, err := h.engine.CheckDisputeTimeout(esc.ID)
	if err != nil {
		t.Fatalf("dispute timeout crank: %v", err)
	}
	if resolved.Status != StatusResolvedForSender {
		t.Fatalf("favor-sender policy refunds the sender, got %v", resolved.Status)
	}
	senderBal, _ := h.ledger.Balance("GOLD", h.sender)
	if senderBal.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("sender refund mismatch, got %s", senderBal)
	}
}

func TestAdminResolveDisputeBypassesWindow(t *testing.T) {
	h := newTestHarness(t)
	admin := newTestAddress(0xAD)
	h.auth.allowed[admin] = true
	if err := h.engine.Initialize(admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	h.auth.allowed = map[[20]byte]bool{admin: true}
	resolved, err := h.engine.AdminResolveDispute(esc.ID, true)
	if err != nil {
		t.Fatalf("admin resolve: %v", err)
	}
	if resolved.Status != StatusResolvedForRecipient {
		t.Fatalf("expected resolved-for-recipient, got %v", resolved.Status)
	}
}

func TestAdminResolveRequiresAdmin(t *testing.T) {
	h := newTestHarness(t)
	admin := newTestAddress(0xAD)
	h.auth.allowed[admin] = true
	if err := h.engine.Initialize(admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	h.auth.allowed = map[[20]byte]bool{h.sender: true}
	if _, err := h.engine.AdminResolveDispute(esc.ID, true); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("non-admin must not resolve by fiat, got %v", err)
	}
}

func TestDisputeBlocksTimeoutCrank(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	h.now = esc.TimeoutAt() + 1
	if _, err := h.engine.CheckTimeout(esc.ID); !errors.Is(err, ErrNotActive) {
		t.Fatalf("disputed escrow must not auto-release, got %v", err)
	}
}

func TestUpdateDisputePeriod(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)

	updated, err := h.engine.UpdateDisputePeriod(esc.ID, 900)
	if err != nil {
		t.Fatalf("update dispute period: %v", err)
	}
	if updated.DisputePeriod != 900 {
		t.Fatalf("expected dispute period 900, got %d", updated.DisputePeriod)
	}
	if h.emitter.last() != EventTypeDisputePeriodUpdated {
		t.Fatalf("expected update event, got %q", h.emitter.last())
	}

	if _, err := h.engine.UpdateDisputePeriod(esc.ID, 0); !errors.Is(err, ErrInvalidDisputePeriod) {
		t.Fatalf("zero period must fail, got %v", err)
	}
	if _, err := h.engine.UpdateDisputePeriod(esc.ID, esc.TimeoutDuration+1); !errors.Is(err, ErrInvalidDisputePeriod) {
		t.Fatalf("period beyond timeout must fail, got %v", err)
	}
	h.auth.allowed = map[[20]byte]bool{h.recv: true}
	if _, err := h.engine.UpdateDisputePeriod(esc.ID, 600); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("only the sender updates the period, got %v", err)
	}

	h.auth.allowed[h.sender] = true
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if _, err := h.engine.UpdateDisputePeriod(esc.ID, 600); !errors.Is(err, ErrDisputeExists) {
		t.Fatalf("period is frozen once disputed, got %v", err)
	}
}

func TestCanDisputeQuery(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	if !h.engine.CanDispute(esc.ID) {
		t.Fatalf("fresh escrow must be disputable")
	}
	if _, err := h.engine.InitiateDispute(esc.ID, h.sender, "x"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if h.engine.CanDispute(esc.ID) {
		t.Fatalf("disputed escrow must not be disputable again")
	}
	if h.engine.CanDispute(404) {
		t.Fatalf("missing escrow must not be disputable")
	}
}

func TestGetDisputeInfoMissing(t *testing.T) {
	h := newTestHarness(t)
	esc := h.create(t)
	if _, ok := h.engine.GetDisputeInfo(esc.ID); ok {
		t.Fatalf("undisputed escrow must report no dispute info")
	}
	if _, ok := h.engine.GetDisputeInfo(404); ok {
		t.Fatalf("missing escrow must report no dispute info")
	}
}
