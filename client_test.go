package buyer_test

import (
	"crypto/ecdsa"
	"crypto/rand"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto/secp256k1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	buyer "github.com/selesy/x402-chat"
	"github.com/selesy/x402-chat/internal/signer"
	"github.com/selesy/x402-chat/pkg/api/apitest"
)

const testEnvVarName = "X402_BUYER_PRIVATE_KEY"

func TestClientForPrivateKey(t *testing.T) {
	t.Parallel()

	priv, err := ecdsa.GenerateKey(secp256k1.S256(), rand.Reader)
	require.NoError(t, err)

	cl, err := buyer.ClientForPrivateKey(priv)
	require.NoError(t, err)
	assert.IsType(t, &buyer.Transport{}, cl.Transport)
}

func TestClientForPrivateKeyHex(t *testing.T) {
	t.Parallel()

	cl, err := buyer.ClientForPrivateKeyHex(apitest.ECDSAPrivateKeyHex)
	require.NoError(t, err)

	trans, ok := cl.Transport.(*buyer.Transport)
	require.True(t, ok)
	assert.Equal(t, apitest.Address(t), trans.Account())
}

func TestClientForPrivateKeyHexFromEnv(t *testing.T) {
	t.Run("passes", func(t *testing.T) {
		t.Setenv(testEnvVarName, apitest.ECDSAPrivateKeyHex)

		cl, err := buyer.ClientForPrivateKeyHexFromEnv(testEnvVarName)
		require.NoError(t, err)
		assert.NotNil(t, cl)
	})

	t.Run("fails - environment variable not set", func(t *testing.T) {
		t.Setenv(testEnvVarName, "")

		_, err := buyer.ClientForPrivateKeyHexFromEnv(testEnvVarName)
		require.ErrorIs(t, err, signer.ErrEnvVarNotFound)
	})
}

func TestClientForSigner(t *testing.T) {
	t.Parallel()

	s, err := signer.NewECDSASignerFromHex(apitest.ECDSAPrivateKeyHex)
	require.NoError(t, err)

	t.Run("passes - pays for the resource", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(buyer.PaymentHeader) == "" {
				w.WriteHeader(http.StatusPaymentRequired)
				_, _ = io.WriteString(w, payReq("10000"))

				return
			}

			_, _ = io.WriteString(w, "A premium programming joke")
		}))
		t.Cleanup(srv.Close)

		cl, err := buyer.ClientForSigner(s, buyer.WithClient(srv.Client()))
		require.NoError(t, err)

		resp, err := cl.Get(srv.URL)
		require.NoError(t, err)

		t.Cleanup(func() {
			require.NoError(t, resp.Body.Close())
		})

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "A premium programming joke", string(body))
	})

	t.Run("passes - provided client is not modified", func(t *testing.T) {
		t.Parallel()

		base := &http.Client{}

		cl, err := buyer.ClientForSigner(s, buyer.WithClient(base))
		require.NoError(t, err)
		assert.Nil(t, base.Transport)
		assert.NotSame(t, base, cl)
	})

	t.Run("fails - invalid options", func(t *testing.T) {
		t.Parallel()

		_, err := buyer.ClientForSigner(s, buyer.WithClient(nil), buyer.WithLogger(nil), buyer.WithMaxPaymentAmount(nil))
		require.Error(t, err)
		assert.Equal(t, 3, strings.Count(err.Error(), "\n")+1)
	})
}

func TestClientForKeyStore(t *testing.T) {
	t.Parallel()

	ks, acct := apitest.Keystore(t)

	cl, err := buyer.ClientForKeyStore(ks, acct, []byte(apitest.Passphrase))
	require.NoError(t, err)

	trans, ok := cl.Transport.(*buyer.Transport)
	require.True(t, ok)
	assert.Equal(t, acct.Address, trans.Account())
}

func TestClientForWallet(t *testing.T) {
	t.Parallel()

	wal, acct := apitest.Wallet(t)

	cl, err := buyer.ClientForWallet(wal, acct)
	require.NoError(t, err)

	trans, ok := cl.Transport.(*buyer.Transport)
	require.True(t, ok)
	assert.Equal(t, acct.Address, trans.Account())
}
