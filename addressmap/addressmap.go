// Package addressmap derives the destination-chain account bound to an origin
// identity. The derivation is part of the external contract: changing it moves
// every bound user to a different address, so it is versioned.
package addressmap

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"gobetrelay/config"
	"gobetrelay/types"
)

const DerivationVersion = 1

var seedArgs abi.Arguments

func init() {
	stringTy, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	seedArgs = abi.Arguments{{Type: stringTy}, {Type: stringTy}}
}

type Mapper struct {
	destination string
}

// NewMapper binds the mapper to the destination chain namespace
func NewMapper(destinationChain string) *Mapper {
	return &Mapper{destination: destinationChain}
}

func (m *Mapper) Destination() string {
	return m.destination
}

// Derive maps (originChain, originAddress) to a destination address. Native
// origins map to themselves. The result is only an address: the derived key
// never signs anything and is dropped before returning.
func (m *Mapper) Derive(originChain, originAddress string) (common.Address, error) {
	if originChain == m.destination {
		if !common.IsHexAddress(originAddress) {
			return common.Address{}, types.Errorf(types.ErrInvalidRequest, "%q is not an address on %s", originAddress, originChain)
		}
		return common.HexToAddress(originAddress), nil
	}
	return Derive(originChain, originAddress)
}

// Seed is keccak256(abi.encode(string, string)) over the normalised identity
func Seed(originChain, originAddress string) (common.Hash, error) {
	if originChain == "" || originAddress == "" {
		return common.Hash{}, types.NewError(types.ErrInvalidRequest, "origin chain and address are required")
	}

	encoded, err := seedArgs.Pack(originChain, normalise(originChain, originAddress))
	if err != nil {
		return common.Hash{}, fmt.Errorf("cannot encode origin identity: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

func Derive(originChain, originAddress string) (common.Address, error) {
	seed, err := Seed(originChain, originAddress)
	if err != nil {
		return common.Address{}, err
	}

	key, err := crypto.ToECDSA(seed.Bytes())
	if err != nil {
		// seed outside the curve order, probability ~2^-128
		return common.Address{}, fmt.Errorf("seed for %s:%s is not a valid key: %w", originChain, originAddress, err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// hex addresses are case-insensitive, base58 ones are not
func normalise(originChain, originAddress string) string {
	if config.Family(originChain) == types.FamilyEVM {
		return strings.ToLower(originAddress)
	}
	return originAddress
}
