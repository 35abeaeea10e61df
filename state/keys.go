package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	escrowRecordPrefix      = []byte("custodia/escrow/record/")
	escrowDisputePrefix     = []byte("custodia/escrow/dispute/")
	escrowCounterPrefix     = []byte("custodia/escrow/counter")
	escrowAdminPrefix       = []byte("custodia/escrow/admin")
	escrowCustodyPrefix     = []byte("custodia/escrow/custody/")
	escrowStatusIndexPrefix = []byte("custodia/escrow/index/status/")
	escrowPartyIndexPrefix  = []byte("custodia/escrow/index/participant/")
	escrowFeePoolPrefix     = []byte("custodia/escrow/fees/")
	multisigConfigPrefix    = []byte("custodia/multisig/config")
	accountPrefix           = []byte("custodia/account/")
)

func hashKey(parts ...[]byte) []byte {
	size := 0
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func idBytes(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func escrowRecordKey(id uint64) []byte {
	return hashKey(escrowRecordPrefix, idBytes(id))
}

func escrowDisputeKey(id uint64) []byte {
	return hashKey(escrowDisputePrefix, idBytes(id))
}

func escrowCounterKey() []byte {
	return hashKey(escrowCounterPrefix)
}

func escrowAdminKey() []byte {
	return hashKey(escrowAdminPrefix)
}

func escrowCustodyKey(id uint64, asset string) []byte {
	return hashKey(escrowCustodyPrefix, idBytes(id), []byte(asset))
}

func escrowStatusIndexKey(status uint8) []byte {
	return hashKey(escrowStatusIndexPrefix, []byte{status})
}

func escrowPartyIndexKey(addr [20]byte) []byte {
	return hashKey(escrowPartyIndexPrefix, addr[:])
}

func escrowFeePoolKey(asset string) []byte {
	return hashKey(escrowFeePoolPrefix, []byte(asset))
}

func multisigConfigKey() []byte {
	return hashKey(multisigConfigPrefix)
}

func accountKey(addr [20]byte) []byte {
	return hashKey(accountPrefix, addr[:])
}
