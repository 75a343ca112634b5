package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/selesy/x402-chat/pkg/api"
)

// Ethereum's legacy recovery identifier offset, expected by ERC-3009
// verifiers in the signature's V byte.
const recoveryIDOffset = 27

var _ api.TypedDataSigner = (*TypedDataSigner)(nil)

// TypedDataSigner is an api.TypedDataSigner that hashes EIP-712 documents
// and signs the digest with an api.Signer.
type TypedDataSigner struct {
	signer api.Signer
}

func NewTypedDataSigner(signer api.Signer) *TypedDataSigner {
	return &TypedDataSigner{
		signer: signer,
	}
}

// SignTypedData implements api.TypedDataSigner.
func (s *TypedDataSigner) SignTypedData(ctx context.Context, data apitypes.TypedData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return "", err
	}

	sig, err := s.signer.Sign(hash)
	if err != nil {
		return "", err
	}

	return encodeSignature(sig)
}

var _ api.TypedDataSigner = (*WalletSigner)(nil)

// WalletSigner is an api.TypedDataSigner backed by a go-ethereum
// accounts.Wallet.  Hardware and external wallets may ask their owner to
// approve each signature.
type WalletSigner struct {
	wal  accounts.Wallet
	acct accounts.Account
}

func NewWalletSigner(wal accounts.Wallet, acct accounts.Account) (*WalletSigner, error) {
	if !wal.Contains(acct) {
		return nil, ErrAccountNotFound
	}

	return &WalletSigner{
		wal:  wal,
		acct: acct,
	}, nil
}

// SignTypedData implements api.TypedDataSigner.
func (s *WalletSigner) SignTypedData(ctx context.Context, data apitypes.TypedData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, raw, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return "", err
	}

	sig, err := s.wal.SignData(s.acct, accounts.MimetypeTypedData, []byte(raw))
	if err != nil {
		return "", err
	}

	return encodeSignature(sig)
}

func encodeSignature(sig []byte) (string, error) {
	if len(sig) != 65 {
		return "", ErrInvalidSignature
	}

	out := make([]byte, len(sig))
	copy(out, sig)

	if out[64] < recoveryIDOffset {
		out[64] += recoveryIDOffset
	}

	return hexutil.Encode(out), nil
}
