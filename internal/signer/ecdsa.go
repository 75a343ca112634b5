package signer

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/secp256k1"

	"github.com/selesy/x402-chat/pkg/api"
)

var _ api.EVMSigner = (*ECDSASigner)(nil)

// ECDSASigner is an api.EVMSigner that creates a cryptographic signature
// using an ecdsa.PrivateKey held in memory.
type ECDSASigner struct {
	priv *ecdsa.PrivateKey
}

func NewECDSASigner(priv *ecdsa.PrivateKey) (*ECDSASigner, error) {
	if priv.Curve != secp256k1.S256() {
		return nil, ErrInvalidCurve
	}

	if !secp256k1.S256().IsOnCurve(priv.X, priv.Y) {
		return nil, ErrInvalidPoint
	}

	return &ECDSASigner{
		priv: priv,
	}, nil
}

// NewECDSASignerFromBytes parses a 32 byte secp256k1 private key.
func NewECDSASignerFromBytes(b []byte) (*ECDSASigner, error) {
	priv, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPoint, err)
	}

	return NewECDSASigner(priv)
}

// NewECDSASignerFromHex is like NewECDSASignerFromBytes except that the
// key is parsed from a hexadecimal string, with or without a 0x prefix.
func NewECDSASignerFromHex(s string) (*ECDSASigner, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	privBytes, err := hexutil.Decode(s)
	if err != nil {
		return nil, err
	}

	return NewECDSASignerFromBytes(privBytes)
}

func NewECDSASignerFromEnv(name string) (*ECDSASigner, error) {
	privHex := os.Getenv(name)
	if privHex == "" {
		return nil, fmt.Errorf("%w: %s", ErrEnvVarNotFound, name)
	}

	return NewECDSASignerFromHex(privHex)
}

func (s *ECDSASigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.priv.PublicKey)
}

func (s *ECDSASigner) Sign(digestHash []byte) ([]byte, error) {
	return crypto.Sign(digestHash, s.priv)
}
