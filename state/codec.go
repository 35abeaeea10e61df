package state

import (
	"fmt"
	"math/big"
	"sort"

	"custodia/core/types"
	"custodia/native/escrow"
	"custodia/native/multisig"
)

// Stored record shapes. RLP has no signed integers or maps, so ledger
// timestamps travel as big.Int and account balances as sorted parallel
// slices.

type storedEscrow struct {
	ID              uint64
	Sender          [20]byte
	Recipient       [20]byte
	Asset           string
	Amount          *big.Int
	CreatedAt       *big.Int
	TimeoutDuration *big.Int
	DisputePeriod   *big.Int
	Status          uint8
	HasDispute      bool
}

func newStoredEscrow(e *escrow.Escrow) *storedEscrow {
	if e == nil {
		return nil
	}
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	return &storedEscrow{
		ID:              e.ID,
		Sender:          e.Sender,
		Recipient:       e.Recipient,
		Asset:           e.Asset,
		Amount:          amount,
		CreatedAt:       big.NewInt(e.CreatedAt),
		TimeoutDuration: big.NewInt(e.TimeoutDuration),
		DisputePeriod:   big.NewInt(e.DisputePeriod),
		Status:          uint8(e.Status),
		HasDispute:      e.HasDispute,
	}
}

func (s *storedEscrow) toEscrow() (*escrow.Escrow, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil escrow record")
	}
	out := &escrow.Escrow{
		ID:         s.ID,
		Sender:     s.Sender,
		Recipient:  s.Recipient,
		Asset:      s.Asset,
		Amount:     big.NewInt(0),
		Status:     escrow.Status(s.Status),
		HasDispute: s.HasDispute,
	}
	if s.Amount != nil {
		out.Amount = new(big.Int).Set(s.Amount)
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	if s.TimeoutDuration != nil {
		out.TimeoutDuration = s.TimeoutDuration.Int64()
	}
	if s.DisputePeriod != nil {
		out.DisputePeriod = s.DisputePeriod.Int64()
	}
	if !out.Status.Valid() {
		return nil, escrow.ErrInvalidStatus
	}
	return out, nil
}

type storedDispute struct {
	EscrowID      uint64
	InitiatedBy   [20]byte
	InitiatedAt   *big.Int
	DisputePeriod *big.Int
	Reason        string
}

func newStoredDispute(d *escrow.Dispute) *storedDispute {
	if d == nil {
		return nil
	}
	return &storedDispute{
		EscrowID:      d.EscrowID,
		InitiatedBy:   d.InitiatedBy,
		InitiatedAt:   big.NewInt(d.InitiatedAt),
		DisputePeriod: big.NewInt(d.DisputePeriod),
		Reason:        d.Reason,
	}
}

func (s *storedDispute) toDispute() (*escrow.Dispute, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil dispute record")
	}
	out := &escrow.Dispute{
		EscrowID:    s.EscrowID,
		InitiatedBy: s.InitiatedBy,
		Reason:      s.Reason,
	}
	if s.InitiatedAt != nil {
		out.InitiatedAt = s.InitiatedAt.Int64()
	}
	if s.DisputePeriod != nil {
		out.DisputePeriod = s.DisputePeriod.Int64()
	}
	return out, nil
}

type storedAdminConfig struct {
	Admin      [20]byte
	DisputeFee *big.Int
	Paused     bool
}

func newStoredAdminConfig(c *escrow.AdminConfig) *storedAdminConfig {
	if c == nil {
		return nil
	}
	fee := big.NewInt(0)
	if c.DisputeFee != nil {
		fee = new(big.Int).Set(c.DisputeFee)
	}
	return &storedAdminConfig{Admin: c.Admin, DisputeFee: fee, Paused: c.Paused}
}

func (s *storedAdminConfig) toAdminConfig() *escrow.AdminConfig {
	if s == nil {
		return nil
	}
	out := &escrow.AdminConfig{Admin: s.Admin, DisputeFee: big.NewInt(0), Paused: s.Paused}
	if s.DisputeFee != nil {
		out.DisputeFee = new(big.Int).Set(s.DisputeFee)
	}
	return out
}

type storedMultisigConfig struct {
	Signers   [][20]byte
	Threshold uint32
	Nonce     uint64
}

func newStoredMultisigConfig(c *multisig.Config) *storedMultisigConfig {
	if c == nil {
		return nil
	}
	return &storedMultisigConfig{
		Signers:   append([][20]byte(nil), c.Signers...),
		Threshold: c.Threshold,
		Nonce:     c.Nonce,
	}
}

func (s *storedMultisigConfig) toMultisigConfig() *multisig.Config {
	if s == nil {
		return nil
	}
	return &multisig.Config{
		Signers:   append([][20]byte(nil), s.Signers...),
		Threshold: s.Threshold,
		Nonce:     s.Nonce,
	}
}

type storedAccount struct {
	Nonce   uint64
	Assets  []string
	Amounts []*big.Int
}

func newStoredAccount(acc *types.Account) *storedAccount {
	if acc == nil {
		return &storedAccount{}
	}
	assets := make([]string, 0, len(acc.Balances))
	for asset := range acc.Balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	amounts := make([]*big.Int, 0, len(assets))
	for _, asset := range assets {
		amounts = append(amounts, acc.Balance(asset))
	}
	return &storedAccount{Nonce: acc.Nonce, Assets: assets, Amounts: amounts}
}

func (s *storedAccount) toAccount() (*types.Account, error) {
	if s == nil {
		return types.NewAccount(), nil
	}
	if len(s.Assets) != len(s.Amounts) {
		return nil, fmt.Errorf("state: account balance shape mismatch")
	}
	out := types.NewAccount()
	out.Nonce = s.Nonce
	for i, asset := range s.Assets {
		out.SetBalance(asset, s.Amounts[i])
	}
	return out, nil
}

type storedIndex struct {
	IDs []uint64
}
