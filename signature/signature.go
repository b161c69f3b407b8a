// Package signature checks that a canonical message was signed by the claimed
// origin-chain account, using the origin chain family's own scheme.
package signature

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"gobetrelay/config"
	"gobetrelay/types"
)

type Result struct {
	Valid            bool   `json:"isValid"`
	RecoveredAddress string `json:"recoveredAddress,omitempty"`
	// nil when Valid, otherwise a *types.RelayError
	Err error `json:"-"`
}

type Verifier struct {
	logger *zap.Logger
}

func NewVerifier(logger *zap.Logger) *Verifier {
	return &Verifier{logger: logger}
}

// Verify never returns a fatal error: malformed input is reported as an invalid result
func (v *Verifier) Verify(proof types.SignatureProof) Result {
	family := config.Family(proof.ChainNamespace)

	var res Result
	switch family {
	case types.FamilyEVM:
		res = verifyEVM(proof.Message, proof.Signature, proof.ClaimedAddress)
	case types.FamilySolana:
		res = verifySolana(proof.Message, proof.Signature, proof.ClaimedAddress)
	default:
		res = Result{Err: types.Errorf(types.ErrUnsupportedChainFamily, "unsupported chain family %q", family)}
	}

	if !res.Valid {
		v.logger.Debug("signature rejected",
			zap.String("chain", proof.ChainNamespace),
			zap.String("claimed", proof.ClaimedAddress),
			zap.String("recovered", res.RecoveredAddress),
			zap.Error(res.Err))
	}
	return res
}

func prefixHash(data []byte) common.Hash {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256Hash([]byte(msg))
}

// SignEVM produces a personal_sign signature with V in {27, 28}
func SignEVM(msg string, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(prefixHash([]byte(msg)).Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverEVM returns the personal_sign signer of msg
func RecoverEVM(msg string, sig string) (common.Address, error) {
	sigBytes, err := hexutil.Decode(sig)
	if err != nil {
		return common.Address{}, types.WrapError(types.ErrMalformedSignature, "invalid signature hex", err)
	}

	if len(sigBytes) != crypto.SignatureLength {
		return common.Address{}, types.Errorf(types.ErrMalformedSignature, "signature must be %d bytes, got %d", crypto.SignatureLength, len(sigBytes))
	}

	if sigBytes[64] != 27 && sigBytes[64] != 28 && sigBytes[64] != 0 && sigBytes[64] != 1 {
		return common.Address{}, types.Errorf(types.ErrMalformedSignature, "wrong signature recovery id %d", sigBytes[64])
	}

	if sigBytes[64] == 27 || sigBytes[64] == 28 {
		sigBytes[64] = sigBytes[64] - 27
	}

	msgHash := prefixHash([]byte(msg))
	pub, err := crypto.SigToPub(msgHash.Bytes(), sigBytes)
	if err != nil {
		return common.Address{}, types.WrapError(types.ErrMalformedSignature, "cannot recover public key", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

func verifyEVM(msg, sig, expected string) Result {
	if !common.IsHexAddress(expected) {
		return Result{Err: types.Errorf(types.ErrInvalidSignature, "claimed address %q is not an EVM address", expected)}
	}

	address, err := RecoverEVM(msg, sig)
	if err != nil {
		return Result{Err: err}
	}

	res := Result{RecoveredAddress: address.Hex()}
	if !strings.EqualFold(expected, address.Hex()) {
		res.Err = types.Errorf(types.ErrInvalidSignature, "signature recovers to %s, not %s", address.Hex(), expected)
		return res
	}
	res.Valid = true
	return res
}

func decodeSolanaSignature(sig string) (solana.Signature, error) {
	var out solana.Signature

	if strings.HasPrefix(sig, "0x") {
		b, err := hexutil.Decode(sig)
		if err != nil {
			return out, err
		}
		if len(b) != len(out) {
			return out, fmt.Errorf("signature must be %d bytes, got %d", len(out), len(b))
		}
		copy(out[:], b)
		return out, nil
	}

	return solana.SignatureFromBase58(sig)
}

func verifySolana(msg, sig, expected string) Result {
	pub, err := solana.PublicKeyFromBase58(expected)
	if err != nil {
		return Result{Err: types.WrapError(types.ErrInvalidSignature, "claimed address is not a solana public key", err)}
	}

	s, err := decodeSolanaSignature(sig)
	if err != nil {
		return Result{Err: types.WrapError(types.ErrMalformedSignature, "invalid solana signature encoding", err)}
	}

	// ed25519 has no recovery, the only candidate signer is the claimed key
	if !s.Verify(pub, []byte(msg)) {
		return Result{Err: types.Errorf(types.ErrInvalidSignature, "signature does not verify for %s", expected)}
	}
	return Result{Valid: true, RecoveredAddress: pub.String()}
}

// Bytes decodes a signature into the raw form forwarded to the contract
func Bytes(chainNamespace, sig string) ([]byte, error) {
	switch config.Family(chainNamespace) {
	case types.FamilyEVM:
		b, err := hexutil.Decode(sig)
		if err != nil {
			return nil, types.WrapError(types.ErrMalformedSignature, "invalid signature hex", err)
		}
		return b, nil
	case types.FamilySolana:
		s, err := decodeSolanaSignature(sig)
		if err != nil {
			return nil, types.WrapError(types.ErrMalformedSignature, "invalid solana signature encoding", err)
		}
		return s[:], nil
	}
	return nil, types.Errorf(types.ErrUnsupportedChainFamily, "unsupported chain family %q", config.Family(chainNamespace))
}
