// Package apitest provides keys, signers and assertions shared by the
// tests of packages that implement or consume the api interfaces.
package apitest

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selesy/x402-chat/pkg/api"
)

const (
	ECDSAPrivateKeyHex      = "6cfb3f917efa513636a6f8103d01426e932806cc7205c4361de4c633452e2b57"
	NotOnCurvePrivateKeyHex = "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"

	Passphrase = "LetMeIn"

	// FakeSignature is returned by every FakeSigner.
	FakeSignature = "0x" +
		"1111111111111111111111111111111111111111111111111111111111111111" +
		"2222222222222222222222222222222222222222222222222222222222222222" +
		"1b"
)

// TestSigner asserts that signer produces a recoverable signature of a
// TransferWithAuthorization digest for its own address.
func TestSigner(t *testing.T, signer api.EVMSigner) {
	t.Helper()

	hash, _ := TransferWithAuthorizationHash(t)

	sig, err := signer.Sign(hash)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)

	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
}

// RecoverTypedData returns the address that produced the 0x prefixed
// signature of data.  The signature's V byte must carry the +27 offset.
func RecoverTypedData(t *testing.T, data apitypes.TypedData, signature string) common.Address {
	t.Helper()

	hash, _, err := apitypes.TypedDataAndHash(data)
	require.NoError(t, err)

	sig, err := hexutil.Decode(signature)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)
	require.GreaterOrEqual(t, sig[64], byte(27))

	sig[64] -= 27

	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)

	return crypto.PubkeyToAddress(*pub)
}

// Address returns the address of ECDSAPrivateKeyHex.
func Address(t *testing.T) common.Address {
	t.Helper()

	priv, err := crypto.HexToECDSA(ECDSAPrivateKeyHex)
	require.NoError(t, err)

	return crypto.PubkeyToAddress(priv.PublicKey)
}

// Keystore imports ECDSAPrivateKeyHex into a new keystore in a temporary
// directory, encrypted with Passphrase.
func Keystore(t *testing.T) (*keystore.KeyStore, accounts.Account) {
	t.Helper()

	priv, err := crypto.HexToECDSA(ECDSAPrivateKeyHex)
	require.NoError(t, err)

	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)

	acct, err := ks.ImportECDSA(priv, Passphrase)
	require.NoError(t, err)
	require.NotNil(t, acct)

	return ks, acct
}

// Wallet returns the keystore wallet holding the account created by
// Keystore.  The account is unlocked for the duration of the test.
func Wallet(t *testing.T) (accounts.Wallet, accounts.Account) {
	t.Helper()

	ks, acct := Keystore(t)
	require.NoError(t, ks.Unlock(acct, Passphrase))

	t.Cleanup(func() {
		_ = ks.Lock(acct.Address)
	})

	mgr := accounts.NewManager(&accounts.Config{InsecureUnlockAllowed: false}, ks)
	t.Cleanup(func() {
		_ = mgr.Close()
	})

	wal, err := mgr.Find(acct)
	require.NoError(t, err)
	require.NotNil(t, wal)

	return wal, acct
}

var _ api.TypedDataSigner = (*FakeSigner)(nil)

// FakeSigner is an api.TypedDataSigner that records the documents it's
// asked to sign.  It returns FakeSignature unless Err or Panic is set.
type FakeSigner struct {
	Err   error
	Panic any

	mu    sync.Mutex
	calls []apitypes.TypedData
}

// SignTypedData implements api.TypedDataSigner.
func (s *FakeSigner) SignTypedData(_ context.Context, data apitypes.TypedData) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, data)
	s.mu.Unlock()

	if s.Panic != nil {
		panic(s.Panic)
	}

	if s.Err != nil {
		return "", s.Err
	}

	return FakeSignature, nil
}

// Calls returns the documents signed so far.
func (s *FakeSigner) Calls() []apitypes.TypedData {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]apitypes.TypedData(nil), s.calls...)
}

// FixedNonce is the nonce returned by FixedNonceFunc.
const FixedNonce = "140fd607c52d266941aa8d8241891654b6d7ab50a02028cb900c746e3a1bf4dd"

func FixedNonceFunc(t *testing.T) func() []byte {
	t.Helper()

	nonce, err := hex.DecodeString(FixedNonce)
	require.NoError(t, err)

	return func() []byte {
		return nonce
	}
}

// FixedNow is the time returned by FixedNowFunc.
const FixedNow = "2001-02-03T04:05:06Z"

func FixedNowFunc(t *testing.T) func() time.Time {
	t.Helper()

	now, err := time.Parse(time.RFC3339, FixedNow)
	require.NoError(t, err)

	return func() time.Time {
		return now
	}
}

// TransferWithAuthorizationHash returns the EIP-712 digest and the raw
// encoded document of a known TransferWithAuthorization message.
func TransferWithAuthorizationHash(t *testing.T) ([]byte, string) {
	t.Helper()

	const (
		expHash = "291ea3849c8018ce32bbf62d479dc3ddf6aeb48ff26ce781af4c5eaa83279a5a"
		expData = "190102fa7265e7c5d81118673727957699e4d68f74cd74b7db77da710fe8a2c7834f4ef85a66e9f161738930fbdba8ae123e7abd7bd10ce397381f794ad74073192f"
	)

	hash, data, err := apitypes.TypedDataAndHash(TransferWithAuthorization())
	require.NoError(t, err)
	require.Equal(t, expHash, hex.EncodeToString(hash))
	require.Equal(t, expData, hex.EncodeToString([]byte(data)))

	require.Equal(t, expHash, hex.EncodeToString(crypto.Keccak256Hash([]byte(data)).Bytes()))

	return hash, data
}

// TransferWithAuthorization returns a known USDC transfer on Base.
func TransferWithAuthorization() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"TransferWithAuthorization": []apitypes.Type{
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
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              "USD Coin",
			Version:           "2",
			ChainId:           math.NewHexOrDecimal256(8453),
			VerifyingContract: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		Message: apitypes.TypedDataMessage{
			"from":        "0x26279EC7Ad9207013149967b5aA1CF42AC6487eb",
			"to":          "0x8d6Efb97F6E3d218647eD74AF418d47489550Ae2",
			"value":       "320",
			"validAfter":  "1754735643",
			"validBefore": "1754736303",
			"nonce":       "0xd8ac8930d08bfa8ff03af000ef78f0c624f30047d52e62b3ae8e3b9e2b6462ca",
		},
	}
}
