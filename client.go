package buyer

import (
	"crypto/ecdsa"
	"net/http"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"

	"github.com/selesy/x402-chat/internal/signer"
	"github.com/selesy/x402-chat/pkg/api"
)

// ClientForTypedDataSigner returns an http.Client capable of making
// payments from account, with each payment authorization signed by signer.
func ClientForTypedDataSigner(account common.Address, signer api.TypedDataSigner, opts ...Option) (*http.Client, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	trans, err := newTransport(cfg.client.Transport, account, signer, cfg)
	if err != nil {
		return nil, err
	}

	client := *cfg.client
	client.Transport = trans

	return &client, nil
}

// ClientForSigner returns an http.Client capable of making payments from
// the Ethereum account of the provided api.EVMSigner.
func ClientForSigner(evmSigner api.EVMSigner, opts ...Option) (*http.Client, error) {
	return ClientForTypedDataSigner(evmSigner.Address(), signer.NewTypedDataSigner(evmSigner), opts...)
}

// ClientForPrivateKey returns an http.Client capable of making payments
// using cryptocurrency from the Ethereum account associated with the
// provided ECDSA private key.
func ClientForPrivateKey(priv *ecdsa.PrivateKey, opts ...Option) (*http.Client, error) {
	s, err := signer.NewECDSASigner(priv)
	if err != nil {
		return nil, err
	}

	return ClientForSigner(s, opts...)
}

// ClientForPrivateKeyHex is like ClientForPrivateKey except that the
// private key is parsed from the provided hexadecimal string.
func ClientForPrivateKeyHex(privHex string, opts ...Option) (*http.Client, error) {
	s, err := signer.NewECDSASignerFromHex(privHex)
	if err != nil {
		return nil, err
	}

	return ClientForSigner(s, opts...)
}

// ClientForPrivateKeyHexFromEnv is like ClientForPrivateKeyHex except that
// hexadecimal string is read from the environment variable selected by name.
func ClientForPrivateKeyHexFromEnv(name string, opts ...Option) (*http.Client, error) {
	s, err := signer.NewECDSASignerFromEnv(name)
	if err != nil {
		return nil, err
	}

	return ClientForSigner(s, opts...)
}

// ClientForKeyStore returns an http.Client that pays from acct, whose key
// is decrypted from ks with pass each time a payment is signed.
func ClientForKeyStore(ks *keystore.KeyStore, acct accounts.Account, pass []byte, opts ...Option) (*http.Client, error) {
	s, err := signer.NewKeyStoreSigner(ks, acct, pass)
	if err != nil {
		return nil, err
	}

	return ClientForSigner(s, opts...)
}

// ClientForWallet returns an http.Client that asks wal to sign each
// payment made from acct.
func ClientForWallet(wal accounts.Wallet, acct accounts.Account, opts ...Option) (*http.Client, error) {
	s, err := signer.NewWalletSigner(wal, acct)
	if err != nil {
		return nil, err
	}

	return ClientForTypedDataSigner(acct.Address, s, opts...)
}
