package multisig

import "errors"

var (
	// Validation errors.
	ErrInvalidThreshold = errors.New("multisig: invalid threshold")
	ErrDuplicateSigner  = errors.New("multisig: duplicate signer")

	// State errors.
	ErrAlreadyInitialized = errors.New("multisig: already initialized")
	ErrNotInitialized     = errors.New("multisig: not initialized")

	// Authorization errors.
	ErrNotSigner = errors.New("multisig: proposer is not a signer")
)

// Config is the single active configuration of an approval group. The nonce
// is the replay guard: it strictly increases by one per executed proposal and
// every signature must bind the nonce current at signing time.
type Config struct {
	Signers   [][20]byte
	Threshold uint32
	Nonce     uint64
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := &Config{
		Signers:   make([][20]byte, len(c.Signers)),
		Threshold: c.Threshold,
		Nonce:     c.Nonce,
	}
	copy(clone.Signers, c.Signers)
	return clone
}

// IsSigner reports whether the address belongs to the current signer set.
func (c *Config) IsSigner(addr [20]byte) bool {
	if c == nil {
		return false
	}
	for _, signer := range c.Signers {
		if signer == addr {
			return true
		}
	}
	return false
}

func validateSigners(signers [][20]byte, threshold uint32) error {
	if threshold == 0 || uint64(threshold) > uint64(len(signers)) {
		return ErrInvalidThreshold
	}
	seen := make(map[[20]byte]struct{}, len(signers))
	for _, signer := range signers {
		if _, ok := seen[signer]; ok {
			return ErrDuplicateSigner
		}
		seen[signer] = struct{}{}
	}
	return nil
}
