package signer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selesy/x402-chat/internal/signer"
	"github.com/selesy/x402-chat/pkg/api/apitest"
)

func TestTypedDataSigner(t *testing.T) {
	t.Parallel()

	t.Run("passes - signature recovers the signer's address", func(t *testing.T) {
		t.Parallel()

		s, err := signer.NewECDSASignerFromHex(apitest.ECDSAPrivateKeyHex)
		require.NoError(t, err)

		data := apitest.TransferWithAuthorization()

		sig, err := signer.NewTypedDataSigner(s).SignTypedData(t.Context(), data)
		require.NoError(t, err)
		assert.Len(t, sig, 2+65*2)
		assert.Equal(t, s.Address(), apitest.RecoverTypedData(t, data, sig))
	})

	t.Run("fails - canceled context", func(t *testing.T) {
		t.Parallel()

		s, err := signer.NewECDSASignerFromHex(apitest.ECDSAPrivateKeyHex)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err = signer.NewTypedDataSigner(s).SignTypedData(ctx, apitest.TransferWithAuthorization())
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("fails - signer error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")

		_, err := signer.NewTypedDataSigner(&stubSigner{err: errBoom}).SignTypedData(t.Context(), apitest.TransferWithAuthorization())
		require.ErrorIs(t, err, errBoom)
	})

	t.Run("fails - short signature", func(t *testing.T) {
		t.Parallel()

		_, err := signer.NewTypedDataSigner(&stubSigner{sig: make([]byte, 64)}).SignTypedData(t.Context(), apitest.TransferWithAuthorization())
		require.ErrorIs(t, err, signer.ErrInvalidSignature)
	})
}

func TestWalletSigner(t *testing.T) {
	t.Parallel()

	t.Run("passes", func(t *testing.T) {
		t.Parallel()

		wal, acct := apitest.Wallet(t)

		s, err := signer.NewWalletSigner(wal, acct)
		require.NoError(t, err)

		data := apitest.TransferWithAuthorization()

		sig, err := s.SignTypedData(t.Context(), data)
		require.NoError(t, err)
		assert.Equal(t, acct.Address, apitest.RecoverTypedData(t, data, sig))
	})

	t.Run("fails - account not in wallet", func(t *testing.T) {
		t.Parallel()

		wal, _ := apitest.Wallet(t)

		_, err := signer.NewWalletSigner(wal, accounts.Account{Address: common.HexToAddress("0x01")})
		require.ErrorIs(t, err, signer.ErrAccountNotFound)
	})
}

type stubSigner struct {
	sig []byte
	err error
}

func (s *stubSigner) Sign([]byte) ([]byte, error) {
	return s.sig, s.err
}
