// signbet builds and signs a place-bet request the way a wallet would, for
// manual testing against a running relay.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"gobetrelay/config"
	"gobetrelay/message"
	"gobetrelay/signature"
	"gobetrelay/types"
	"gobetrelay/workers/handlers"
)

func main() {
	var (
		key      = flag.String("key", "", "origin private key: hex for EVM chains, base58 for Solana")
		chain    = flag.String("chain", config.DefaultDestinationChain, "origin chain namespace")
		marketID = flag.Uint64("market", 0, "market id")
		option   = flag.Uint("option", 0, "0 for option A, 1 for option B")
		amount   = flag.String("amount", "", "stake in destination units")
		nonce    = flag.String("nonce", "", "intent nonce, random when empty")
		bridgeID = flag.String("bridge", "", "origin-chain payment tx hash")
	)
	flag.Parse()

	if *key == "" || *amount == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *nonce == "" {
		*nonce = uuid.NewString()
	}

	ts := time.Now().UnixMilli()
	msg := message.Build(types.ActionPlaceBet, *marketID, types.Option(*option), *amount, *nonce, ts)

	address, sig, err := sign(*chain, *key, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	req := handlers.PlaceBetRequest{
		MarketID:      *marketID,
		Option:        uint8(*option),
		Amount:        *amount,
		OriginChain:   *chain,
		OriginAddress: address,
		Signature:     sig,
		Message:       msg,
		Nonce:         *nonce,
		Timestamp:     ts,
		BridgeID:      *bridgeID,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(req)
}

func sign(chain, key, msg string) (address, sig string, err error) {
	switch config.Family(chain) {
	case types.FamilyEVM:
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x"))
		if err != nil {
			return "", "", fmt.Errorf("bad EVM key: %w", err)
		}
		b, err := signature.SignEVM(msg, pk)
		if err != nil {
			return "", "", err
		}
		return crypto.PubkeyToAddress(pk.PublicKey).Hex(), hexutil.Encode(b), nil
	case types.FamilySolana:
		pk, err := solana.PrivateKeyFromBase58(key)
		if err != nil {
			return "", "", fmt.Errorf("bad Solana key: %w", err)
		}
		s, err := pk.Sign([]byte(msg))
		if err != nil {
			return "", "", err
		}
		return pk.PublicKey().String(), s.String(), nil
	}
	return "", "", fmt.Errorf("unsupported chain family %q", config.Family(chain))
}
