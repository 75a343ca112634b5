package evm

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/coinbase/x402/go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/selesy/x402-chat/pkg/api"
	"github.com/selesy/x402-chat/pkg/payer"
)

const (
	// PrimaryType is the EIP-712 primary type of an ERC-3009 transfer.
	PrimaryType = "TransferWithAuthorization"

	defaultDomainVersion = "2"

	// validAfter is backdated to tolerate clock skew between the buyer
	// and the verifier.
	clockSkewGrace = 10 * time.Minute
)

// Types are the EIP-712 type definitions of an ERC-3009
// TransferWithAuthorization message.
var Types = apitypes.Types{
	PrimaryType: []apitypes.Type{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
}

var _ api.Authorizer = (*ExactEvm)(nil)

// ExactEvm is an api.Authorizer that handles payment requests on
// EVM-compatible networks for the "exact" scheme.
type ExactEvm struct {
	nowFunc   payer.NowFunc
	nonceFunc payer.NonceFunc
	networks  payer.Networks
	log       *slog.Logger
}

func NewExactEvm(log *slog.Logger, opts ...payer.Option) (*ExactEvm, error) {
	options, err := payer.NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &ExactEvm{
		nowFunc:   options.NowFunc(),
		nonceFunc: options.NonceFunc(),
		networks:  options.Networks(),
		log:       log,
	}, nil
}

// Scheme implements api.Authorizer.
func (e *ExactEvm) Scheme() api.Scheme {
	return api.SchemeExact
}

// Authorize implements api.Authorizer.
func (e *ExactEvm) Authorize(ctx context.Context, account common.Address, signer api.TypedDataSigner, requirements types.PaymentRequirements) (*types.PaymentPayload, error) {
	network, err := e.networks.Lookup(requirements.Network)
	if err != nil {
		return nil, err
	}

	extra, err := payer.DecodeExtra(requirements)
	if err != nil {
		return nil, payer.FailedPaymentPayloadCreation(err)
	}

	authorization := e.prepareAuthorization(account, requirements)
	typedData := TypedData(network, extra, requirements.Asset, authorization)

	e.log.Debug("ERC-3009 domain",
		slog.String("name", typedData.Domain.Name),
		slog.String("version", typedData.Domain.Version),
		slog.Int64("chainId", network.ChainID),
		slog.String("verifyingContract", typedData.Domain.VerifyingContract),
	)

	sig, err := signer.SignTypedData(ctx, typedData)
	if err != nil {
		return nil, payer.SigningFailed(err)
	}

	e.log.Debug("Signature", slog.String("hex", sig))

	e.log.Info(
		"x402 payment authorized",
		slog.String("from", authorization.From),
		slog.String("to", authorization.To),
		slog.String("value", authorization.Value),
		slog.String("scheme", requirements.Scheme),
		slog.String("network", requirements.Network),
		slog.String("name", typedData.Domain.Name),
	)

	return &types.PaymentPayload{
		X402Version: payer.X402Version,
		Scheme:      string(api.SchemeExact),
		Network:     requirements.Network,
		Payload: &types.ExactEvmPayload{
			Signature:     sig,
			Authorization: authorization,
		},
	}, nil
}

func (e *ExactEvm) prepareAuthorization(account common.Address, details types.PaymentRequirements) *types.ExactEvmPayloadAuthorization {
	now := e.nowFunc()

	validAfter := strconv.FormatInt(now.Add(-clockSkewGrace).Unix(), 10)
	validBefore := strconv.FormatInt(now.Unix()+int64(details.MaxTimeoutSeconds), 10)

	return &types.ExactEvmPayloadAuthorization{
		From:        account.Hex(),
		To:          details.PayTo,
		Value:       details.MaxAmountRequired,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       hexutil.Encode(e.nonceFunc()),
	}
}

// TypedData builds the EIP-712 document a payer signs to authorize the
// transfer.  Domain fields sent by the server in extra take precedence
// over the network's defaults.
func TypedData(network payer.NetworkConfig, extra payer.Extra, asset string, authorization *types.ExactEvmPayloadAuthorization) apitypes.TypedData {
	name := extra.Name
	if name == "" {
		name = network.USDCName
	}

	version := extra.Version
	if version == "" {
		version = defaultDomainVersion
	}

	return apitypes.TypedData{
		Types:       Types,
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           math.NewHexOrDecimal256(network.ChainID),
			VerifyingContract: asset,
		},
		Message: apitypes.TypedDataMessage{
			"from":        authorization.From,
			"to":          authorization.To,
			"value":       authorization.Value,
			"validAfter":  authorization.ValidAfter,
			"validBefore": authorization.ValidBefore,
			"nonce":       authorization.Nonce,
		},
	}
}
