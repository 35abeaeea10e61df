package multisig

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"custodia/core/events"
	"custodia/core/types"
	"custodia/native/common"
)

// payloadDomain separates proposal digests from any other signed payload in
// the system.
const payloadDomain = "custodia/multisig/v1"

// signatureLength is the recoverable secp256k1 form: r || s || v.
const signatureLength = 65

var errNilState = errors.New("multisig engine: state not configured")

// EngineState is the durable storage surface holding the single approval
// group configuration.
type EngineState interface {
	MultisigConfigGet() (*Config, bool)
	MultisigConfigPut(*Config) error
}

type multisigEvent struct {
	evt *types.Event
}

func (e multisigEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e multisigEvent) Event() *types.Event { return e.evt }

// Engine evaluates k-of-n approval for proposed operations. There is no
// pending-proposal state: a proposal either meets the threshold within the
// call that submits it (advancing the nonce) or is discarded, and callers
// must resubmit with signatures bound to the new nonce.
type Engine struct {
	state    EngineState
	emitter  events.Emitter
	auth     common.Authorizer
	instance [32]byte
	nowFn    func() int64
}

// NewEngine creates a multisig engine with a no-op emitter and an allow-all
// authorizer. The instance tag feeds the proposal digest so signatures cannot
// be replayed across engine instances.
func NewEngine(instance [32]byte) *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		auth:     common.AllowAll{},
		instance: instance,
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state EngineState) { e.state = state }

// SetAuthorizer configures the authorization capability. Passing nil resets
// it to allow-all.
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

// SetNowFunc overrides the time source used by the engine, primarily for
// deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(multisigEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadConfig() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok := e.state.MultisigConfigGet()
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// ProposalDigest computes the payload every signer must sign to approve an
// operation: the domain tag, the engine instance, the operation digest and
// the big-endian nonce. Binding the nonce is what invalidates a signature set
// once a proposal executes.
func ProposalDigest(instance [32]byte, operation [32]byte, nonce uint64) [32]byte {
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(payloadDomain), instance[:], operation[:], nb[:]))
	return out
}

// Initialize installs the approval group. It may be called exactly once; the
// nonce starts at zero.
func (e *Engine) Initialize(signers [][20]byte, threshold uint32) (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := validateSigners(signers, threshold); err != nil {
		return nil, err
	}
	if _, ok := e.state.MultisigConfigGet(); ok {
		return nil, ErrAlreadyInitialized
	}
	cfg := &Config{
		Signers:   append([][20]byte(nil), signers...),
		Threshold: threshold,
		Nonce:     0,
	}
	if err := e.state.MultisigConfigPut(cfg); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// ProposeTransaction evaluates whether the supplied signatures approve the
// operation under the current nonce. Each signature is recovered against the
// proposal digest and must map to a distinct member of the signer set;
// signatures from non-members, malformed blobs and duplicates from the same
// signer do not count. A proposed event is always emitted, win or lose. When
// the distinct-signer count reaches the threshold the nonce advances by one
// and the call returns true; otherwise nothing changes and the caller must
// gather more signatures.
func (e *Engine) ProposeTransaction(operation [32]byte, signatures [][]byte, proposer [20]byte) (bool, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return false, err
	}
	digest := ProposalDigest(e.instance, operation, cfg.Nonce)
	approved := make(map[[20]byte]struct{}, len(signatures))
	for _, sig := range signatures {
		signer, err := recoverSigner(digest, sig)
		if err != nil {
			continue
		}
		if !cfg.IsSigner(signer) {
			continue
		}
		approved[signer] = struct{}{}
	}
	count := uint32(len(approved))

	e.emit(NewProposedEvent(cfg, proposer, operation, count, e.now()))

	if count < cfg.Threshold {
		return false, nil
	}
	e.emit(NewExecutedEvent(cfg, operation, e.now()))
	cfg.Nonce++
	if err := e.state.MultisigConfigPut(cfg); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateConfig replaces the signer set and threshold wholesale, preserving
// the nonce. The proposer must belong to the current signer set and pass the
// authorization capability.
func (e *Engine) UpdateConfig(newSigners [][20]byte, newThreshold uint32, proposer [20]byte) (*Config, error) {
	if err := validateSigners(newSigners, newThreshold); err != nil {
		return nil, err
	}
	old, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !old.IsSigner(proposer) {
		return nil, ErrNotSigner
	}
	if err := e.auth.Require(proposer); err != nil {
		return nil, fmt.Errorf("multisig: proposer authorization: %w", err)
	}
	updated := &Config{
		Signers:   append([][20]byte(nil), newSigners...),
		Threshold: newThreshold,
		Nonce:     old.Nonce,
	}
	e.emit(NewConfigUpdatedEvent(old, updated, e.now()))
	if err := e.state.MultisigConfigPut(updated); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Config returns the current approval group configuration.
func (e *Engine) Config() (*Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

func recoverSigner(digest [32]byte, sig []byte) ([20]byte, error) {
	var out [20]byte
	if len(sig) != signatureLength {
		return out, fmt.Errorf("multisig: signature must be %d bytes", signatureLength)
	}
	pubKey, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return out, err
	}
	copy(out[:], ethcrypto.PubkeyToAddress(*pubKey).Bytes())
	return out, nil
}
