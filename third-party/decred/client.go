// Package decred builds x402 paying clients from private keys created
// with the Decred secp256k1 package.
package decred

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	buyer "github.com/selesy/x402-chat"
	"github.com/selesy/x402-chat/internal/signer"
	"github.com/selesy/x402-chat/pkg/api"
)

// Signer returns an api.EVMSigner for the provided Decred secp256k1
// private key.  The key is copied onto go-ethereum's secp256k1 curve.
func Signer(priv *secp256k1.PrivateKey) (api.EVMSigner, error) {
	s, err := signer.NewECDSASignerFromBytes(priv.Serialize())
	if err != nil {
		return nil, err
	}

	return s, nil
}

// ClientForPrivateKey returns an http.Client capable of making payments
// using cryptocurrency from the Ethereum account associated with the provided
// ECDSA private key (which is expected to be using the Decred secp256k1
// curve.)
func ClientForPrivateKey(priv *secp256k1.PrivateKey, opts ...buyer.Option) (*http.Client, error) {
	s, err := Signer(priv)
	if err != nil {
		return nil, err
	}

	return buyer.ClientForSigner(s, opts...)
}

// ClientForPrivateKeyHex is like ClientForPrivateKey except that the
// private key is parsed from the provided hexadecimal string.
func ClientForPrivateKeyHex(privHex string, opts ...buyer.Option) (*http.Client, error) {
	privBytes, err := hex.DecodeString(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		return nil, err
	}

	return ClientForPrivateKey(secp256k1.PrivKeyFromBytes(privBytes), opts...)
}

// ClientForPrivateKeyHexFromEnv is like ClientForPrivateKeyHex except that
// hexadecimal string is read from the environment variable selected by name.
func ClientForPrivateKeyHexFromEnv(name string, opts ...buyer.Option) (*http.Client, error) {
	privHex, ok := os.LookupEnv(name)
	if !ok || privHex == "" {
		return nil, fmt.Errorf("%w: %s", signer.ErrEnvVarNotFound, name)
	}

	return ClientForPrivateKeyHex(privHex, opts...)
}
