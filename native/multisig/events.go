package multisig

import (
	"encoding/hex"
	"strconv"
	"strings"

	"custodia/core/types"
)

const (
	EventTypeProposed      = "multisig.proposed"
	EventTypeExecuted      = "multisig.executed"
	EventTypeConfigUpdated = "multisig.config_updated"
)

// NewProposedEvent records a proposal attempt regardless of outcome: the
// nonce it was evaluated against, the proposer, the operation digest, the
// threshold in force and the number of distinct valid signatures observed.
func NewProposedEvent(cfg *Config, proposer [20]byte, operation [32]byte, validSignatures uint32, proposedAt int64) *types.Event {
	attrs := map[string]string{
		"proposer":      hex.EncodeToString(proposer[:]),
		"operationHash": hex.EncodeToString(operation[:]),
		"signatures":    strconv.FormatUint(uint64(validSignatures), 10),
		"proposedAt":    strconv.FormatInt(proposedAt, 10),
	}
	if cfg != nil {
		attrs["nonce"] = strconv.FormatUint(cfg.Nonce, 10)
		attrs["threshold"] = strconv.FormatUint(uint64(cfg.Threshold), 10)
	}
	return &types.Event{Type: EventTypeProposed, Attributes: attrs}
}

// NewExecutedEvent records a proposal that met the threshold and executed
// under the given configuration.
func NewExecutedEvent(cfg *Config, operation [32]byte, executedAt int64) *types.Event {
	attrs := map[string]string{
		"operationHash": hex.EncodeToString(operation[:]),
		"executedAt":    strconv.FormatInt(executedAt, 10),
	}
	if cfg != nil {
		attrs["nonce"] = strconv.FormatUint(cfg.Nonce, 10)
		attrs["signers"] = joinSigners(cfg.Signers)
	}
	return &types.Event{Type: EventTypeExecuted, Attributes: attrs}
}

// NewConfigUpdatedEvent records both the outgoing and incoming signer sets and
// thresholds of a configuration replacement.
func NewConfigUpdatedEvent(old, updated *Config, updatedAt int64) *types.Event {
	attrs := map[string]string{
		"updatedAt": strconv.FormatInt(updatedAt, 10),
	}
	if old != nil {
		attrs["oldSigners"] = joinSigners(old.Signers)
		attrs["oldThreshold"] = strconv.FormatUint(uint64(old.Threshold), 10)
	}
	if updated != nil {
		attrs["newSigners"] = joinSigners(updated.Signers)
		attrs["newThreshold"] = strconv.FormatUint(uint64(updated.Threshold), 10)
	}
	return &types.Event{Type: EventTypeConfigUpdated, Attributes: attrs}
}

func joinSigners(signers [][20]byte) string {
	encoded := make([]string, 0, len(signers))
	for _, signer := range signers {
		encoded = append(encoded, hex.EncodeToString(signer[:]))
	}
	return strings.Join(encoded, ",")
}
