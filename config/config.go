package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"custodia/crypto"
	"custodia/native/escrow"
)

// Config holds the host-supplied settings for an engine instance.
type Config struct {
	DataDir       string `toml:"DataDir"`
	VaultAddress  string `toml:"VaultAddress"`
	DisputeFee    string `toml:"DisputeFee"`
	DisputePolicy string `toml:"DisputePolicy"`
	AutoResolve   string `toml:"AutoResolve"`
}

const (
	disputePolicySender = "sender"
	disputePolicyEither = "either"

	autoResolveRecipient = "recipient"
	autoResolveSender    = "sender"
)

// Load loads the configuration from the given path, writing a default file if
// none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./custodia-data"
	}
	if strings.TrimSpace(cfg.DisputeFee) == "" {
		cfg.DisputeFee = "0"
	}
	if strings.TrimSpace(cfg.DisputePolicy) == "" {
		cfg.DisputePolicy = disputePolicySender
	}
	if strings.TrimSpace(cfg.AutoResolve) == "" {
		cfg.AutoResolve = autoResolveRecipient
	}
}

// Validate checks the policy strings and numeric fields without resolving the
// vault address, which may legitimately be absent until deployment.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DisputePolicy)) {
	case disputePolicySender, disputePolicyEither:
	default:
		return fmt.Errorf("config: unknown dispute policy %q", c.DisputePolicy)
	}
	switch strings.ToLower(strings.TrimSpace(c.AutoResolve)) {
	case autoResolveRecipient, autoResolveSender:
	default:
		return fmt.Errorf("config: unknown auto-resolve policy %q", c.AutoResolve)
	}
	if _, err := c.ParseDisputeFee(); err != nil {
		return err
	}
	return nil
}

// ParseDisputeFee returns the configured default dispute fee.
func (c *Config) ParseDisputeFee() (*big.Int, error) {
	trimmed := strings.TrimSpace(c.DisputeFee)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	fee, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid dispute fee %q", c.DisputeFee)
	}
	return fee, nil
}

// ParseVault decodes the configured bech32 vault address.
func (c *Config) ParseVault() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(c.VaultAddress))
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: vault address: %w", err)
	}
	return addr.Raw(), nil
}

// EscrowDisputePolicy maps the configured policy string onto the engine enum.
func (c *Config) EscrowDisputePolicy() escrow.DisputePolicy {
	if strings.EqualFold(strings.TrimSpace(c.DisputePolicy), disputePolicyEither) {
		return escrow.DisputeByEither
	}
	return escrow.DisputeBySender
}

// EscrowAutoResolvePolicy maps the configured beneficiary string onto the
// engine enum.
func (c *Config) EscrowAutoResolvePolicy() escrow.AutoResolvePolicy {
	if strings.EqualFold(strings.TrimSpace(c.AutoResolve), autoResolveSender) {
		return escrow.AutoResolveFavorSender
	}
	return escrow.AutoResolveFavorRecipient
}
