package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of a bech32 account address.
type AddressPrefix string

// AccountPrefix is used for every lender and borrower account.
const AccountPrefix AddressPrefix = "lend"

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address identifies an account. It is comparable and safe to use as a map
// key.
type Address struct {
	prefix AddressPrefix
	bytes  [AddressLength]byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != AddressLength {
		panic("address must be 20 bytes long")
	}
	addr := Address{prefix: prefix}
	copy(addr.bytes[:], b)
	return addr
}

// DeriveAddress maps an arbitrary label to an account address using the last
// 20 bytes of its Keccak-256 digest. Used by tooling and tests to name
// accounts deterministically.
func DeriveAddress(label string) Address {
	digest := ethcrypto.Keccak256([]byte(strings.TrimSpace(label)))
	return NewAddress(AccountPrefix, digest[len(digest)-AddressLength:])
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.bytes[:])
	return out
}

// Hex returns the lowercase hex encoding of the address bytes, used for
// storage keys.
func (a Address) Hex() string {
	return hex.EncodeToString(a.bytes[:])
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address has no prefix and all-zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != AddressLength {
		return Address{}, fmt.Errorf("invalid address length %d", len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}
