package types

import (
	"math/big"
	"testing"
)

func TestAccountBalanceDefaultsToZero(t *testing.T) {
	acc := NewAccount()
	if acc.Balance("GOLD").Sign() != 0 {
		t.Fatalf("absent asset must read zero")
	}

	var nilAcc *Account
	if nilAcc.Balance("GOLD").Sign() != 0 {
		t.Fatalf("nil account must read zero")
	}
}

func TestAccountSetBalance(t *testing.T) {
	acc := NewAccount()
	acc.SetBalance("GOLD", big.NewInt(100))
	if acc.Balance("GOLD").Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance mismatch: %s", acc.Balance("GOLD"))
	}

	acc.SetBalance("GOLD", nil)
	if acc.Balance("GOLD").Sign() != 0 {
		t.Fatalf("nil amount must store zero")
	}

	// Stored balances do not alias caller values.
	amount := big.NewInt(50)
	acc.SetBalance("SILVER", amount)
	amount.SetInt64(999)
	if acc.Balance("SILVER").Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("stored balance aliases caller value")
	}
	read := acc.Balance("SILVER")
	read.SetInt64(1)
	if acc.Balance("SILVER").Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("returned balance aliases stored value")
	}
}

func TestAccountCloneIsDeep(t *testing.T) {
	acc := NewAccount()
	acc.Nonce = 3
	acc.SetBalance("GOLD", big.NewInt(10))

	clone := acc.Clone()
	clone.SetBalance("GOLD", big.NewInt(999))
	clone.Nonce = 9

	if acc.Balance("GOLD").Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("clone shares balances")
	}
	if acc.Nonce != 3 {
		t.Fatalf("clone shares the nonce")
	}
}
