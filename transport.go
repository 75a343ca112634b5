package buyer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/coinbase/x402/go/pkg/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/selesy/x402-chat/internal/exact/evm"
	"github.com/selesy/x402-chat/pkg/api"
	"github.com/selesy/x402-chat/pkg/metrics"
	"github.com/selesy/x402-chat/pkg/payer"
)

const (
	// PaymentHeader carries the base64 encoded payment payload on the
	// retried request.
	PaymentHeader = "X-PAYMENT"
	// PaymentResponseHeader is the header a server uses to report the
	// settlement of a payment.
	PaymentResponseHeader = "X-PAYMENT-RESPONSE"

	exposeHeadersHeader = "Access-Control-Expose-Headers"
	unknownError        = "Unknown error"

	maxPaymentBodySize = 1 << 20
)

// state is a step of the payment protocol.  Each call to RoundTrip walks
// Initial -> AwaitingPayment -> Retried and stops in Done or Failed.
// Retried is only reachable from AwaitingPayment, so at most one paid
// retry is sent per call.
type state int

const (
	stateInitial state = iota
	stateAwaitingPayment
	stateRetried
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateAwaitingPayment:
		return "awaiting-payment"
	case stateRetried:
		return "retried"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var _ http.RoundTripper = (*Transport)(nil)

// Transport is an http.RoundTripper that pays for resources protected by
// the x402 protocol.
//
// Responses other than 402 Payment Required are returned unchanged.  On a
// 402, the first payment option offered by the server is authorized by
// the account's signer, provided it doesn't exceed the maximum payment
// amount, and the request is sent one more time with the payment attached.
//
// A Transport holds no per-request state and is safe for concurrent use.
type Transport struct {
	config

	next    http.RoundTripper
	account common.Address
	signer  api.TypedDataSigner
}

// NewTransport wraps next so that payments are made on behalf of account
// using signer.  If next is nil, http.DefaultTransport is used.
func NewTransport(next http.RoundTripper, account common.Address, signer api.TypedDataSigner, opts ...Option) (*Transport, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return newTransport(next, account, signer, cfg)
}

func newTransport(next http.RoundTripper, account common.Address, signer api.TypedDataSigner, cfg *config) (*Transport, error) {
	if signer == nil {
		return nil, errors.New("signer must not be nil")
	}

	if next == nil {
		next = http.DefaultTransport
	}

	if cfg.authorizer == nil {
		auth, err := evm.NewExactEvm(cfg.log, cfg.payerOpts...)
		if err != nil {
			return nil, err
		}

		cfg.authorizer = auth
	}

	return &Transport{
		config: *cfg,

		next:    next,
		account: account,
		signer:  signer,
	}, nil
}

// Account returns the address payments are made from.
func (t *Transport) Account() common.Address {
	return t.account
}

// attempt is the state carried between steps of a single RoundTrip.
type attempt struct {
	req     *http.Request
	body    []byte
	resp    *http.Response
	network string
	err     error
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Body can only be read one time ... since we make two round-trips
	// if a payment is required, we have to duplicate the body.  So we
	// read the bytes and will create new readers for each call.
	body, err := readRequestBody(req)
	if err != nil {
		return nil, err
	}

	a := &attempt{req: req, body: body}

	st := stateInitial
	for {
		t.log.Debug("x402 state", slog.String("state", st.String()), slog.String("url", req.URL.String()))

		switch st {
		case stateInitial:
			st = t.send(a)
		case stateAwaitingPayment:
			st = t.pay(a)
		case stateRetried:
			st = t.checkRetry(a)
		case stateDone:
			return a.resp, nil
		case stateFailed:
			return nil, a.err
		default:
			return nil, fmt.Errorf("%w: unexpected state %s", payer.ErrPaymentProcessingFailed, st)
		}
	}
}

func (t *Transport) send(a *attempt) state {
	resp, err := t.next.RoundTrip(a.newRequest())
	if err != nil {
		a.err = err

		return stateFailed
	}

	a.resp = resp

	if resp.StatusCode != http.StatusPaymentRequired {
		return stateDone
	}

	return stateAwaitingPayment
}

func (t *Transport) pay(a *attempt) state {
	ctx := a.req.Context()

	requirements, err := t.selectRequirements(a.resp)
	if err != nil {
		a.err = err

		return stateFailed
	}

	a.network = requirements.Network
	labels := map[string]string{"network": a.network}
	t.recorder.IncCounter(metrics.EventPaymentRequired, labels)

	if err := t.checkAmount(requirements); err != nil {
		t.recorder.IncCounter(metrics.EventPaymentFailed, labels)
		a.err = err

		return stateFailed
	}

	header, err := t.paymentHeader(ctx, requirements)
	if err != nil {
		t.recorder.IncCounter(metrics.EventPaymentFailed, labels)
		a.err = normalizePaymentError(err)

		return stateFailed
	}

	t.recorder.IncCounter(metrics.EventPaymentAuthorized, labels)

	req := a.newRequest()
	req.Header.Set(PaymentHeader, header)
	req.Header.Set(exposeHeadersHeader, PaymentResponseHeader)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		a.err = normalizePaymentError(err)

		return stateFailed
	}

	a.resp = resp

	return stateRetried
}

func (t *Transport) checkRetry(a *attempt) state {
	if a.resp.StatusCode != http.StatusPaymentRequired {
		return stateDone
	}

	err := paymentFailed(a.resp)
	t.recorder.IncCounter(metrics.EventPaymentFailed, map[string]string{"network": a.network})
	t.log.Debug("x402 payment rejected", slog.String("error", err.Error()))

	a.resp = nil
	a.err = normalizePaymentError(err)

	return stateFailed
}

func (t *Transport) selectRequirements(resp *http.Response) (types.PaymentRequirements, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPaymentBodySize))
	if err != nil {
		return types.PaymentRequirements{}, fmt.Errorf("failed to read response body: %w", err)
	}

	t.log.Debug("Payment request body", slog.String("json", string(body)))

	var paymentRequest payer.PaymentRequest
	if err := json.Unmarshal(body, &paymentRequest); err != nil {
		return types.PaymentRequirements{}, fmt.Errorf("failed to unmarshal payment request: %w", err)
	}

	if len(paymentRequest.Accepts) == 0 {
		return types.PaymentRequirements{}, payer.ErrNoPaymentOptions
	}

	// Only the first accepted payment method is ever used.
	requirements := paymentRequest.Accepts[0]
	if requirements == nil {
		return types.PaymentRequirements{}, payer.ErrPaymentRequirementsMissing
	}

	return *requirements, nil
}

func (t *Transport) checkAmount(requirements types.PaymentRequirements) error {
	required, err := payer.ParseAmount(requirements.MaxAmountRequired)
	if err != nil {
		return err
	}

	if required.Cmp(t.maxAmount) > 0 {
		return &payer.AmountExceededError{
			Required: required,
			Allowed:  new(big.Int).Set(t.maxAmount),
		}
	}

	return nil
}

func (t *Transport) paymentHeader(ctx context.Context, requirements types.PaymentRequirements) (string, error) {
	payment, err := t.authorize(ctx, requirements)
	if err != nil {
		return "", err
	}

	paymentData, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}

	t.log.Debug("Payment header JSON", slog.String("json", string(paymentData)))

	return EncodePaymentHeader(paymentData), nil
}

func (t *Transport) authorize(ctx context.Context, requirements types.PaymentRequirements) (payment *types.PaymentPayload, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			payment = nil
			err = fmt.Errorf("%w: %v", payer.ErrPaymentProcessingFailed, r)
		}

		t.recorder.ObserveLatency(metrics.OperationSign, time.Since(start), map[string]string{
			"network": requirements.Network,
		})
	}()

	return t.authorizer.Authorize(ctx, t.account, t.signer, requirements)
}

// newRequest returns a copy of the caller's request with a fresh reader
// over the buffered body.  The caller's request is never modified.
func (a *attempt) newRequest() *http.Request {
	req := a.req.Clone(a.req.Context())

	if a.body != nil {
		body := a.body
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = int64(len(body))
	}

	return req
}

func readRequestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	defer req.Body.Close()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	return body, nil
}

func paymentFailed(resp *http.Response) error {
	defer resp.Body.Close()

	msg := unknownError

	var paymentErr payer.PaymentError
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPaymentBodySize)).Decode(&paymentErr); err == nil && paymentErr.Err != "" {
		msg = paymentErr.Err
	}

	return &payer.PaymentFailedError{Message: msg}
}

func normalizePaymentError(err error) error {
	if errors.Is(err, payer.ErrInsufficientBalance) {
		return err
	}

	if strings.Contains(err.Error(), "insufficient") {
		return fmt.Errorf("%w: %w", payer.ErrInsufficientBalance, err)
	}

	return err
}

// EncodePaymentHeader encodes a JSON payment payload for transport in the
// X-PAYMENT header.
func EncodePaymentHeader(paymentData []byte) string {
	return base64.StdEncoding.EncodeToString(paymentData)
}

// DecodePaymentHeader reverses EncodePaymentHeader.
func DecodePaymentHeader(header string) (*types.PaymentPayload, error) {
	paymentData, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, err
	}

	var payment types.PaymentPayload
	if err := json.Unmarshal(paymentData, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}
