package signer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"

	"github.com/selesy/x402-chat/pkg/api"
)

var _ api.EVMSigner = (*KeyStoreSigner)(nil)

// KeyStoreSigner is an api.EVMSigner for an account held in an encrypted
// go-ethereum keystore.  The key is decrypted for each signature and is
// never left unlocked.
type KeyStoreSigner struct {
	ks   *keystore.KeyStore
	acct accounts.Account
	pass []byte
}

func NewKeyStoreSigner(ks *keystore.KeyStore, acct accounts.Account, pass []byte) (*KeyStoreSigner, error) {
	if !ks.HasAddress(acct.Address) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, acct.Address.Hex())
	}

	return &KeyStoreSigner{
		ks:   ks,
		acct: acct,
		pass: pass,
	}, nil
}

// NewKeyStoreSignerFromDir opens the keystore in dir and selects the
// account with the given address.
func NewKeyStoreSignerFromDir(dir string, addr common.Address, pass []byte) (*KeyStoreSigner, error) {
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)

	return NewKeyStoreSigner(ks, accounts.Account{Address: addr}, pass)
}

func (s *KeyStoreSigner) Address() common.Address {
	return s.acct.Address
}

func (s *KeyStoreSigner) Sign(digestHash []byte) ([]byte, error) {
	return s.ks.SignHashWithPassphrase(s.acct, string(s.pass), digestHash)
}
