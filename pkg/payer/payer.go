// Package payer holds the x402 data model shared by the buyer's transport
// and its scheme-specific authorizers.
package payer

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/coinbase/x402/go/pkg/types"
)

// X402Version is the protocol version written into every payment payload.
const X402Version = 1

// PaymentRequest represents the body of a 402 Payment Required response.
type PaymentRequest struct {
	X402Version int                          `json:"x402Version"`
	Err         string                       `json:"error"`
	Accepts     []*types.PaymentRequirements `json:"accepts"`
}

// PaymentError represents the body of a 402 response to a request that
// already carried a payment.
type PaymentError struct {
	Err string `json:"error"`
}

// Extra holds the optional EIP-712 domain overrides a server may send in
// the "extra" field of its payment requirements.
type Extra struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DecodeExtra returns the domain overrides carried by requirements.  A
// missing extra field yields a zero Extra.
func DecodeExtra(requirements types.PaymentRequirements) (Extra, error) {
	var extra Extra

	if requirements.Extra == nil || len(*requirements.Extra) == 0 {
		return extra, nil
	}

	if err := json.Unmarshal([]byte(*requirements.Extra), &extra); err != nil {
		return Extra{}, err
	}

	return extra, nil
}

type NonceFunc func() []byte

type NowFunc func() time.Time

// DefaultNonce returns 32 bytes from the operating system's CSPRNG.
func DefaultNonce() []byte {
	nonce := make([]byte, 32)
	_, _ = rand.Read(nonce)

	return nonce
}

func DefaultNow() NowFunc {
	return time.Now
}
