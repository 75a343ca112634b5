// Package config loads the settings of the x402chat command from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/selesy/x402-chat/internal/signer"
	"github.com/selesy/x402-chat/pkg/api"
	"github.com/selesy/x402-chat/pkg/payer"
)

const (
	EnvEndpoint        = "X402_CHAT_ENDPOINT"
	EnvModel           = "X402_CHAT_MODEL"
	EnvDBPath          = "X402_CHAT_DB"
	EnvMaxPayment      = "X402_MAX_PAYMENT"
	EnvLogLevel        = "X402_LOG_LEVEL"
	EnvPrivateKey      = "X402_BUYER_PRIVATE_KEY"
	EnvKeystoreDir     = "X402_KEYSTORE_DIRECTORY"
	EnvAccountAddress  = "X402_ACCOUNT_ADDRESS"
	EnvAccountPassword = "X402_ACCOUNT_PASSWORD" //nolint:gosec

	DefaultEndpoint = "https://402.jetson.computer/v1/chat/completions"
	DefaultModel    = "llama3.2"
	DefaultLogLevel = "info"
)

// ErrNoSigner is returned when neither a private key nor a keystore
// account is configured.
var ErrNoSigner = errors.New("either " + EnvPrivateKey + " or " + EnvKeystoreDir + " must be set")

var validate = validator.New()

type Config struct {
	Endpoint   string `validate:"required,url"`
	Model      string `validate:"required"`
	DBPath     string `validate:"required"`
	MaxPayment string `validate:"required,number"`
	LogLevel   string `validate:"omitempty,oneof=debug info warn warning error"`

	PrivateKeyHex   string `validate:"omitempty,hexadecimal"`
	KeystoreDir     string `validate:"omitempty,dir"`
	AccountAddress  string `validate:"omitempty,eth_addr"`
	AccountPassword string
}

// Load reads the configuration from the environment.  Variables found in
// envFile are added to the environment first, without replacing those
// already set.  When envFile is empty, a .env file in the working
// directory is used if there is one.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	dbPath, err := defaultDBPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Endpoint:        getenv(EnvEndpoint, DefaultEndpoint),
		Model:           getenv(EnvModel, DefaultModel),
		DBPath:          getenv(EnvDBPath, dbPath),
		MaxPayment:      getenv(EnvMaxPayment, payer.DefaultMaxPaymentAmount.String()),
		LogLevel:        getenv(EnvLogLevel, DefaultLogLevel),
		PrivateKeyHex:   os.Getenv(EnvPrivateKey),
		KeystoreDir:     os.Getenv(EnvKeystoreDir),
		AccountAddress:  os.Getenv(EnvAccountAddress),
		AccountPassword: os.Getenv(EnvAccountPassword),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration's struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// ValidateSigner checks that exactly one way to sign payments is
// configured.
func (c *Config) ValidateSigner() error {
	switch {
	case c.PrivateKeyHex == "" && c.KeystoreDir == "":
		return ErrNoSigner
	case c.PrivateKeyHex != "" && c.KeystoreDir != "":
		return fmt.Errorf("only one of %s or %s may be set", EnvPrivateKey, EnvKeystoreDir)
	case c.KeystoreDir != "" && c.AccountAddress == "":
		return fmt.Errorf("%s is required when %s is set", EnvAccountAddress, EnvKeystoreDir)
	}

	return nil
}

// MaxPaymentAmount returns the per-request payment ceiling in atomic
// units.
func (c *Config) MaxPaymentAmount() (*big.Int, error) {
	return payer.ParseAmount(c.MaxPayment)
}

// Signer returns the api.EVMSigner selected by the configuration: the raw
// private key when one is set, the keystore account otherwise.
func (c *Config) Signer() (api.EVMSigner, error) {
	if err := c.ValidateSigner(); err != nil {
		return nil, err
	}

	if c.PrivateKeyHex != "" {
		s, err := signer.NewECDSASignerFromHex(c.PrivateKeyHex)
		if err != nil {
			return nil, err
		}

		return s, nil
	}

	s, err := signer.NewKeyStoreSignerFromDir(c.KeystoreDir, common.HexToAddress(c.AccountAddress), []byte(c.AccountPassword))
	if err != nil {
		return nil, err
	}

	return s, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		return godotenv.Load(envFile)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".x402chat", "chats.db"), nil
}

func getenv(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}

	return def
}
