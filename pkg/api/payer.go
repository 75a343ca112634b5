package api

import (
	"context"

	"github.com/coinbase/x402/go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

type Scheme string

const (
	SchemeExact Scheme = "exact"
)

// Authorizer represents types that turn a server's payment requirements
// into a signed payment payload on the account's behalf.
type Authorizer interface {
	// Authorize creates a signed types.PaymentPayload for the given
	// types.PaymentRequirements, asking signer to sign on behalf of
	// account.
	Authorize(ctx context.Context, account common.Address, signer TypedDataSigner, requirements types.PaymentRequirements) (*types.PaymentPayload, error)
	// Scheme returns the constant Scheme of the payloads this Authorizer
	// creates.
	Scheme() Scheme
}
