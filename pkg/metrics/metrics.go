// Package metrics records what the buyer's transport does with payment
// requests.
package metrics

import "time"

const (
	EventPaymentRequired   = "payment_required"
	EventPaymentAuthorized = "payment_authorized"
	EventPaymentFailed     = "payment_failed"

	OperationSign = "sign"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

var _ Recorder = NoopRecorder{}

type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
