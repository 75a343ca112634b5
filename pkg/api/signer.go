package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// A Signer is implemented by types that can produce a ECDSA signature
// of the provided digestHash.
type Signer interface {
	Sign(digestHash []byte) ([]byte, error)
}

// An EVMSigner is a Signer that operates on behalf of an Ethereum account
// and therefore has an address.
type EVMSigner interface {
	Signer

	Address() common.Address
}

// A TypedDataSigner produces an EIP-712 signature over a structured
// document.  The returned signature is an opaque, 0x-prefixed hex string.
//
// Implementations may block for an unbounded time (e.g. while a wallet asks
// its owner for approval) and should honor ctx cancellation where they can.
// A rejection by the signing party must be reported as an error.
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, data apitypes.TypedData) (string, error)
}
