package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"custodia/core/types"
	"custodia/native/escrow"
	"custodia/native/multisig"
	"custodia/storage"
)

// ErrInsufficientCustody is returned when a debit would draw more out of an
// escrow's custody bucket than was credited to it.
var ErrInsufficientCustody = errors.New("state: insufficient escrow custody")

// Manager is the durable state backend shared by the engines. It persists
// RLP-encoded records under keccak-derived keys in a key-value store and
// maintains the status and participant indexes incrementally on every record
// write, so filtered queries never scan the full record space.
//
// Manager implements escrow.EngineState, escrow.TokenLedger and
// multisig.EngineState.
type Manager struct {
	db storage.Database
}

// NewManager binds a manager to the given database. State is scoped to the
// database instance, so independent engines can run against independent
// stores.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %T: %w", out, err)
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, val interface{}) error {
	raw, err := rlp.EncodeToBytes(val)
	if err != nil {
		return fmt.Errorf("state: encode %T: %w", val, err)
	}
	return m.db.Put(key, raw)
}

// --- escrow records ---

// EscrowPut persists the record and keeps the status and participant indexes
// in sync with it.
func (m *Manager) EscrowPut(e *escrow.Escrow) error {
	sanitized, err := escrow.SanitizeEscrow(e)
	if err != nil {
		return err
	}
	key := escrowRecordKey(sanitized.ID)
	var prior storedEscrow
	hadPrior, err := m.getRLP(key, &prior)
	if err != nil {
		return err
	}
	if err := m.putRLP(key, newStoredEscrow(sanitized)); err != nil {
		return err
	}
	if !hadPrior {
		if err := m.indexAdd(escrowStatusIndexKey(uint8(sanitized.Status)), sanitized.ID); err != nil {
			return err
		}
		if err := m.indexAdd(escrowPartyIndexKey(sanitized.Sender), sanitized.ID); err != nil {
			return err
		}
		return m.indexAdd(escrowPartyIndexKey(sanitized.Recipient), sanitized.ID)
	}
	if prior.Status != uint8(sanitized.Status) {
		if err := m.indexRemove(escrowStatusIndexKey(prior.Status), sanitized.ID); err != nil {
			return err
		}
		return m.indexAdd(escrowStatusIndexKey(uint8(sanitized.Status)), sanitized.ID)
	}
	return nil
}

// EscrowGet returns the stored record for the id, if any.
func (m *Manager) EscrowGet(id uint64) (*escrow.Escrow, bool) {
	var stored storedEscrow
	ok, err := m.getRLP(escrowRecordKey(id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	out, err := stored.toEscrow()
	if err != nil {
		return nil, false
	}
	return out, true
}

// EscrowCount returns the number of ids ever allocated.
func (m *Manager) EscrowCount() uint64 {
	var counter uint64
	ok, err := m.getRLP(escrowCounterKey(), &counter)
	if err != nil || !ok {
		return 0
	}
	return counter
}

// NextEscrowID allocates the next sequential escrow id, starting at 1.
func (m *Manager) NextEscrowID() (uint64, error) {
	next := m.EscrowCount() + 1
	if err := m.putRLP(escrowCounterKey(), next); err != nil {
		return 0, err
	}
	return next, nil
}

// EscrowIDsByStatus returns the ids currently in the given status.
func (m *Manager) EscrowIDsByStatus(status escrow.Status) []uint64 {
	return m.indexIDs(escrowStatusIndexKey(uint8(status)))
}

// EscrowIDsByParticipant returns the ids in which the address appears as
// sender or recipient.
func (m *Manager) EscrowIDsByParticipant(addr [20]byte) []uint64 {
	return m.indexIDs(escrowPartyIndexKey(addr))
}

func (m *Manager) indexIDs(key []byte) []uint64 {
	var idx storedIndex
	ok, err := m.getRLP(key, &idx)
	if err != nil || !ok {
		return nil
	}
	return idx.IDs
}

func (m *Manager) indexAdd(key []byte, id uint64) error {
	var idx storedIndex
	if _, err := m.getRLP(key, &idx); err != nil {
		return err
	}
	for _, existing := range idx.IDs {
		if existing == id {
			return nil
		}
	}
	idx.IDs = append(idx.IDs, id)
	return m.putRLP(key, &idx)
}

func (m *Manager) indexRemove(key []byte, id uint64) error {
	var idx storedIndex
	ok, err := m.getRLP(key, &idx)
	if err != nil || !ok {
		return err
	}
	filtered := idx.IDs[:0]
	for _, existing := range idx.IDs {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	idx.IDs = filtered
	return m.putRLP(key, &idx)
}

// --- dispute records ---

// DisputePut persists the dispute companion record addressed by its escrow id.
func (m *Manager) DisputePut(d *escrow.Dispute) error {
	if d == nil {
		return fmt.Errorf("state: nil dispute")
	}
	return m.putRLP(escrowDisputeKey(d.EscrowID), newStoredDispute(d))
}

// DisputeGet returns the dispute record for the escrow id, if any.
func (m *Manager) DisputeGet(escrowID uint64) (*escrow.Dispute, bool) {
	var stored storedDispute
	ok, err := m.getRLP(escrowDisputeKey(escrowID), &stored)
	if err != nil || !ok {
		return nil, false
	}
	out, err := stored.toDispute()
	if err != nil {
		return nil, false
	}
	return out, true
}

// --- custody bookkeeping ---

// EscrowCredit records value entering custody for the given escrow id.
func (m *Manager) EscrowCredit(id uint64, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return escrow.ErrInvalidAmount
	}
	key := escrowCustodyKey(id, asset)
	balance := m.bigIntAt(key)
	return m.putRLP(key, new(big.Int).Add(balance, amount))
}

// EscrowDebit records value leaving custody. It fails when the debit exceeds
// the amount credited to this escrow, which bounds every settlement at the
// record's own custody.
func (m *Manager) EscrowDebit(id uint64, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return escrow.ErrInvalidAmount
	}
	key := escrowCustodyKey(id, asset)
	balance := m.bigIntAt(key)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientCustody
	}
	return m.putRLP(key, new(big.Int).Sub(balance, amount))
}

// EscrowCustody returns the custody balance held for the escrow id.
func (m *Manager) EscrowCustody(id uint64, asset string) *big.Int {
	return m.bigIntAt(escrowCustodyKey(id, asset))
}

func (m *Manager) bigIntAt(key []byte) *big.Int {
	value := new(big.Int)
	ok, err := m.getRLP(key, value)
	if err != nil || !ok {
		return big.NewInt(0)
	}
	return value
}

// --- admin gate ---

// AdminConfigGet returns the engine's admin record, if initialised.
func (m *Manager) AdminConfigGet() (*escrow.AdminConfig, bool) {
	var stored storedAdminConfig
	ok, err := m.getRLP(escrowAdminKey(), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toAdminConfig(), true
}

// AdminConfigPut persists the engine's admin record.
func (m *Manager) AdminConfigPut(cfg *escrow.AdminConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: nil admin config")
	}
	return m.putRLP(escrowAdminKey(), newStoredAdminConfig(cfg))
}

// FeeAccrue adds a collected dispute fee to the per-asset fee pool.
func (m *Manager) FeeAccrue(asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return escrow.ErrInvalidAmount
	}
	key := escrowFeePoolKey(asset)
	pool := m.bigIntAt(key)
	return m.putRLP(key, new(big.Int).Add(pool, amount))
}

// FeeAccrued returns the dispute fees collected for the asset so far.
func (m *Manager) FeeAccrued(asset string) *big.Int {
	return m.bigIntAt(escrowFeePoolKey(asset))
}

// --- multisig config ---

// MultisigConfigGet returns the approval group configuration, if initialised.
func (m *Manager) MultisigConfigGet() (*multisig.Config, bool) {
	var stored storedMultisigConfig
	ok, err := m.getRLP(multisigConfigKey(), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toMultisigConfig(), true
}

// MultisigConfigPut persists the approval group configuration.
func (m *Manager) MultisigConfigPut(cfg *multisig.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: nil multisig config")
	}
	return m.putRLP(multisigConfigKey(), newStoredMultisigConfig(cfg))
}

// --- token ledger ---

// GetAccount returns the account stored for the address, defaulting to an
// empty account.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.getRLP(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	return stored.toAccount()
}

// PutAccount persists the account for the address.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.putRLP(accountKey(addr), newStoredAccount(acc))
}

// Balance returns the balance the address holds in the given asset.
func (m *Manager) Balance(asset string, addr [20]byte) (*big.Int, error) {
	acc, err := m.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance(asset), nil
}

// Transfer moves amount of asset between two principals. The whole move is
// validated before either account is written.
func (m *Manager) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	if amount == nil {
		return escrow.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return escrow.ErrInvalidAmount
	}
	if from == to {
		// Writing both copies of the same account would double-apply the
		// credit, so the move is a no-op once funds are verified.
		bal, err := m.Balance(asset, from)
		if err != nil {
			return err
		}
		if bal.Cmp(amount) < 0 {
			return escrow.ErrInsufficientFunds
		}
		return nil
	}
	fromAcc, err := m.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	fromBal := fromAcc.Balance(asset)
	if fromBal.Cmp(amount) < 0 {
		return escrow.ErrInsufficientFunds
	}
	fromAcc.SetBalance(asset, new(big.Int).Sub(fromBal, amount))
	toAcc.SetBalance(asset, new(big.Int).Add(toAcc.Balance(asset), amount))
	if err := m.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return m.PutAccount(to, toAcc)
}

// Mint credits freshly issued units of asset to the address. Hosts use this
// to seed balances; the engines themselves never mint.
func (m *Manager) Mint(asset string, addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return escrow.ErrInvalidAmount
	}
	acc, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.SetBalance(asset, new(big.Int).Add(acc.Balance(asset), amount))
	return m.PutAccount(addr, acc)
}
