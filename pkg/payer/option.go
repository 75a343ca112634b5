package payer

import (
	"errors"
	"time"
)

type Options struct {
	nonceFunc NonceFunc
	nowFunc   NowFunc
	networks  Networks
}

func NewOptions(opts ...Option) (*Options, error) {
	options := &Options{
		nonceFunc: DefaultNonce,
		nowFunc:   time.Now,
		networks:  DefaultNetworks,
	}

	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return options, nil
}

func (o *Options) NonceFunc() NonceFunc {
	return o.nonceFunc
}

func (o *Options) NowFunc() NowFunc {
	return o.nowFunc
}

func (o *Options) Networks() Networks {
	return o.networks
}

type Option func(*Options) error

func WithNonceFunc(nonceFunc NonceFunc) Option {
	return func(o *Options) error {
		if nonceFunc == nil {
			return errors.New("nonce function must not be nil")
		}

		o.nonceFunc = nonceFunc

		return nil
	}
}

func WithNowFunc(nowFunc NowFunc) Option {
	return func(o *Options) error {
		if nowFunc == nil {
			return errors.New("now function must not be nil")
		}

		o.nowFunc = nowFunc

		return nil
	}
}

// WithNetworks replaces DefaultNetworks as the table of networks payments
// can be signed for.
func WithNetworks(networks Networks) Option {
	return func(o *Options) error {
		if len(networks) == 0 {
			return errors.New("at least one network is required")
		}

		o.networks = networks

		return nil
	}
}
