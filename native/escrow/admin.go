package escrow

import (
	"fmt"
	"math/big"
)

// Initialize installs the admin principal for this engine instance. It may be
// called exactly once; the dispute fee starts at zero and the gate unpaused.
func (e *Engine) Initialize(admin [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok := e.state.AdminConfigGet(); ok {
		return ErrAlreadyInitialized
	}
	if err := e.auth.Require(admin); err != nil {
		return fmt.Errorf("escrow: admin authorization: %w", err)
	}
	return e.state.AdminConfigPut(&AdminConfig{
		Admin:      admin,
		DisputeFee: big.NewInt(0),
	})
}

func (e *Engine) adminConfig() (*AdminConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok := e.state.AdminConfigGet()
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) requireAdmin() (*AdminConfig, error) {
	cfg, err := e.adminConfig()
	if err != nil {
		return nil, err
	}
	if err := e.auth.Require(cfg.Admin); err != nil {
		return nil, fmt.Errorf("escrow: admin authorization: %w", err)
	}
	return cfg, nil
}

// SetDisputeFee configures the fee charged when a dispute is opened. Admin
// only; the fee may be zero to disable charging.
func (e *Engine) SetDisputeFee(fee *big.Int) error {
	cfg, err := e.requireAdmin()
	if err != nil {
		return err
	}
	if fee != nil && fee.Sign() < 0 {
		return ErrNegativeFee
	}
	cfg.DisputeFee = cloneBigInt(fee)
	return e.state.AdminConfigPut(cfg)
}

// TransferAdmin hands the gate to a new admin principal. Admin only.
func (e *Engine) TransferAdmin(newAdmin [20]byte) error {
	cfg, err := e.requireAdmin()
	if err != nil {
		return err
	}
	cfg.Admin = newAdmin
	return e.state.AdminConfigPut(cfg)
}

// SetPaused toggles the contract-wide pause flag. Pausing gates Create and
// InitiateDispute only: in-flight escrows may still be released, refunded or
// timed out, so pausing stops new exposure without trapping existing funds.
func (e *Engine) SetPaused(paused bool) error {
	cfg, err := e.requireAdmin()
	if err != nil {
		return err
	}
	cfg.Paused = paused
	return e.state.AdminConfigPut(cfg)
}

// Admin returns the current admin principal.
func (e *Engine) Admin() ([20]byte, error) {
	cfg, err := e.adminConfig()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.Admin, nil
}

// DisputeFee returns the currently configured dispute fee. An uninitialised
// gate charges nothing.
func (e *Engine) DisputeFee() *big.Int {
	cfg, err := e.adminConfig()
	if err != nil {
		return big.NewInt(0)
	}
	return cloneBigInt(cfg.DisputeFee)
}
