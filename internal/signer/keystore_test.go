package signer_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selesy/x402-chat/internal/signer"
	"github.com/selesy/x402-chat/pkg/api/apitest"
)

func TestKeyStoreSigner(t *testing.T) {
	t.Parallel()

	t.Run("passes", func(t *testing.T) {
		t.Parallel()

		ks, acct := apitest.Keystore(t)

		signer, err := signer.NewKeyStoreSigner(ks, acct, []byte(apitest.Passphrase))
		require.NoError(t, err)
		assert.Equal(t, apitest.Address(t), signer.Address())

		apitest.TestSigner(t, signer)
	})

	t.Run("fails - account not in keystore", func(t *testing.T) {
		t.Parallel()

		ks, _ := apitest.Keystore(t)

		_, err := signer.NewKeyStoreSigner(ks, accounts.Account{Address: common.HexToAddress("0x01")}, nil)
		require.ErrorIs(t, err, signer.ErrAccountNotFound)
	})

	t.Run("fails - wrong passphrase", func(t *testing.T) {
		t.Parallel()

		ks, acct := apitest.Keystore(t)

		signer, err := signer.NewKeyStoreSigner(ks, acct, []byte("wrong"))
		require.NoError(t, err)

		hash, _ := apitest.TransferWithAuthorizationHash(t)

		_, err = signer.Sign(hash)
		require.Error(t, err)
	})
}

func TestKeyStoreSignerFromDir(t *testing.T) {
	t.Parallel()

	_, acct := apitest.Keystore(t)

	signer, err := signer.NewKeyStoreSignerFromDir(filepath.Dir(acct.URL.Path), acct.Address, []byte(apitest.Passphrase))
	require.NoError(t, err)
	assert.Equal(t, acct.Address, signer.Address())

	apitest.TestSigner(t, signer)
}
