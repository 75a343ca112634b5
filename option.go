package buyer

import (
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/selesy/x402-chat/internal/observability"
	"github.com/selesy/x402-chat/pkg/api"
	"github.com/selesy/x402-chat/pkg/metrics"
	"github.com/selesy/x402-chat/pkg/payer"
)

type config struct {
	client     *http.Client
	log        *slog.Logger
	maxAmount  *big.Int
	recorder   metrics.Recorder
	authorizer api.Authorizer
	payerOpts  []payer.Option
}

// Option represents a means of altering the default configuration of the
// buyer's http.RoundTripper.
type Option func(*config) error

func newConfig(opts ...Option) (*config, error) {
	var errs error

	cfg := &config{
		client: &http.Client{
			Transport: http.DefaultTransport,
		},
		log:       observability.NewNoopLogger(),
		maxAmount: new(big.Int).Set(payer.DefaultMaxPaymentAmount),
		recorder:  metrics.NoopRecorder{},
	}

	for _, opt := range opts {
		errs = errors.Join(errs, opt(cfg))
	}

	if errs != nil {
		return nil, errs
	}

	return cfg, nil
}

// WithClient is an Option that allows the user to provide a custom http.Client
// whose http.RoundTripper will be wrapped to allow x402 payments.
//
// If not provided, http.DefaultClient will be used and internally, the
// http.DefaultTransport will be wrapped with the payment middleware.  This
// option is ignored when provided as an argument to NewTransport.
func WithClient(client *http.Client) Option {
	return func(c *config) error {
		if client == nil {
			return errors.New("client must not be nil")
		}

		c.client = client

		return nil
	}
}

// WithLogger is an Option that allows the user to provide an slog.Logger that
// can be used to observe the internal operation of the buyer's http.RoundTripper.
//
// If not provided, a No-Op logger is used.  Under normal operation, this library
// writes one line of INFO-level logging for each payment that's made.  Debug-
// level logging provides a log record for each step in the payment process.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) error {
		if log == nil {
			return errors.New("logger must not be nil")
		}

		c.log = log

		return nil
	}
}

// WithMaxPaymentAmount sets the largest amount, in the asset's atomic
// units, that will be paid for a single request.  Requests asking for more
// fail with payer.ErrPaymentAmountExceeded before anything is signed.
//
// If not provided, payer.DefaultMaxPaymentAmount (0.1 USDC) is used.
func WithMaxPaymentAmount(amount *big.Int) Option {
	return func(c *config) error {
		if amount == nil || amount.Sign() < 0 {
			return payer.ErrInvalidAmount
		}

		c.maxAmount = new(big.Int).Set(amount)

		return nil
	}
}

// WithNetworks replaces payer.DefaultNetworks as the table of networks the
// buyer is willing to sign payments for.
func WithNetworks(networks payer.Networks) Option {
	return func(c *config) error {
		c.payerOpts = append(c.payerOpts, payer.WithNetworks(networks))

		return nil
	}
}

// WithNonceFunc replaces the source of ERC-3009 nonces.  The function
// must return 32 unpredictable bytes on each call.
func WithNonceFunc(nonceFunc payer.NonceFunc) Option {
	return func(c *config) error {
		c.payerOpts = append(c.payerOpts, payer.WithNonceFunc(nonceFunc))

		return nil
	}
}

// WithNowFunc replaces the clock used to compute the authorization's
// validity window.
func WithNowFunc(nowFunc payer.NowFunc) Option {
	return func(c *config) error {
		c.payerOpts = append(c.payerOpts, payer.WithNowFunc(nowFunc))

		return nil
	}
}

// WithAuthorizer replaces the built-in "exact" EVM authorizer.  When set,
// WithNetworks, WithNonceFunc and WithNowFunc have no effect.
func WithAuthorizer(authorizer api.Authorizer) Option {
	return func(c *config) error {
		if authorizer == nil {
			return errors.New("authorizer must not be nil")
		}

		c.authorizer = authorizer

		return nil
	}
}

// WithRecorder is an Option that reports payment events and signing
// latency to rec.  If not provided, nothing is recorded.
func WithRecorder(rec metrics.Recorder) Option {
	return func(c *config) error {
		if rec == nil {
			return errors.New("recorder must not be nil")
		}

		c.recorder = rec

		return nil
	}
}
