package payer

// NetworkConfig describes the EIP-712 signing domain defaults for the USDC
// contract deployed on a network.
type NetworkConfig struct {
	ChainID  int64
	USDCName string
	Decimals int32
}

// Networks maps x402 network identifiers to their NetworkConfig.
type Networks map[string]NetworkConfig

// DefaultNetworks lists the networks the buyer can pay on when the caller
// doesn't provide its own table.
//
// USDCName needs to be exactly what is returned by name() on the contract.
var DefaultNetworks = Networks{
	"base": {
		ChainID:  8453,
		USDCName: "USD Coin",
		Decimals: 6,
	},
	"base-sepolia": {
		ChainID:  84532,
		USDCName: "USDC",
		Decimals: 6,
	},
	"avalanche": {
		ChainID:  43114,
		USDCName: "USDC",
		Decimals: 6,
	},
	"avalanche-fuji": {
		ChainID:  43113,
		USDCName: "USD Coin",
		Decimals: 6,
	},
}

// Lookup returns the NetworkConfig for network or ErrUnsupportedNetwork.
func (n Networks) Lookup(network string) (NetworkConfig, error) {
	cfg, ok := n[network]
	if !ok {
		return NetworkConfig{}, UnsupportedNetwork(network)
	}

	return cfg, nil
}
