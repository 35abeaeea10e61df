package escrow

import (
	"errors"
	"math/big"
	"testing"

	"custodia/native/common"
)

func newAdminHarness(t *testing.T) (*testHarness, [20]byte) {
	t.Helper()
	h := newTestHarness(t)
	admin := newTestAddress(0xAD)
	h.auth.allowed[admin] = true
	if err := h.engine.Initialize(admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return h, admin
}

func TestInitializeOnce(t *testing.T) {
	h, admin := newAdminHarness(t)

	got, err := h.engine.Admin()
	if err != nil {
		t.Fatalf("admin query: %v", err)
	}
	if got != admin {
		t.Fatalf("admin mismatch: %x", got)
	}
	if fee := h.engine.DisputeFee(); fee.Sign() != 0 {
		t.Fatalf("fresh gate charges no fee, got %s", fee)
	}

	if err := h.engine.Initialize(admin); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second initialize must fail, got %v", err)
	}
	other := newTestAddress(0xAE)
	h.auth.allowed[other] = true
	if err := h.engine.Initialize(other); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("re-initialize with a new admin must fail, got %v", err)
	}
}

func TestInitializeRequiresAdminAuthorization(t *testing.T) {
	h := newTestHarness(t)
	admin := newTestAddress(0xAD)
	if err := h.engine.Initialize(admin); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := h.engine.Admin(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("failed initialize must leave the gate unconfigured, got %v", err)
	}
}

func TestSetDisputeFee(t *testing.T) {
	h, _ := newAdminHarness(t)

	if err := h.engine.SetDisputeFee(big.NewInt(50)); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if fee := h.engine.DisputeFee(); fee.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected fee 50, got %s", fee)
	}
	if err := h.engine.SetDisputeFee(big.NewInt(-1)); !errors.Is(err, ErrNegativeFee) {
		t.Fatalf("negative fee must fail, got %v", err)
	}
	if err := h.engine.SetDisputeFee(big.NewInt(0)); err != nil {
		t.Fatalf("zero fee disables charging: %v", err)
	}

	h.auth.allowed = map[[20]byte]bool{h.sender: true}
	if err := h.engine.SetDisputeFee(big.NewInt(10)); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("non-admin must not set the fee, got %v", err)
	}
}

func TestTransferAdmin(t *testing.T) {
	h, admin := newAdminHarness(t)
	successor := newTestAddress(0xAE)

	if err := h.engine.TransferAdmin(successor); err != nil {
		t.Fatalf("transfer admin: %v", err)
	}
	got, err := h.engine.Admin()
	if err != nil {
		t.Fatalf("admin query: %v", err)
	}
	if got != successor {
		t.Fatalf("expected successor admin, got %x", got)
	}

	// The old admin keeps no residual powers.
	h.auth.allowed = map[[20]byte]bool{admin: true}
	if err := h.engine.SetPaused(true); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("former admin must be powerless, got %v", err)
	}
}

func TestPauseGatesNewExposureOnly(t *testing.T) {
	h, _ := newAdminHarness(t)
	open := h.create(t)
	disputable, err := h.engine.Create(h.sender, h.recv, "GOLD", big.NewInt(100), 3600, 1800)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := h.engine.SetPaused(true); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if _, err := h.engine.Create(h.sender, h.recv, "GOLD", big.NewInt(100), 3600, 1800); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("paused gate must refuse new escrows, got %v", err)
	}
	if _, err := h.engine.InitiateDispute(disputable.ID, h.sender, "x"); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("paused gate must refuse new disputes, got %v", err)
	}

	// Release, refund and the timeout crank stay open so funds are never trapped.
	if _, err := h.engine.Release(open.ID); err != nil {
		t.Fatalf("release while paused: %v", err)
	}
	h.now = disputable.TimeoutAt()
	if _, err := h.engine.CheckTimeout(disputable.ID); err != nil {
		t.Fatalf("timeout crank while paused: %v", err)
	}

	if err := h.engine.SetPaused(false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := h.engine.Create(h.sender, h.recv, "GOLD", big.NewInt(100), 3600, 1800); err != nil {
		t.Fatalf("create after unpause: %v", err)
	}
}

func TestUninitializedGateIsUnpaused(t *testing.T) {
	h := newTestHarness(t)
	if h.engine.IsPaused("escrow") {
		t.Fatalf("an unconfigured gate must not report paused")
	}
	if _, err := h.engine.Create(h.sender, h.recv, "GOLD", big.NewInt(100), 3600, 1800); err != nil {
		t.Fatalf("create without an admin gate: %v", err)
	}
}
