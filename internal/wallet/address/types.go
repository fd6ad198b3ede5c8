package address

import "context"

// ChainTypeEVM is the only chain family the pipeline signs for
const ChainTypeEVM = "evm"

// DefaultPathTemplate is the BIP44 path used by the wallet's EVM accounts
const DefaultPathTemplate = "m/44'/52752'/0'/0/%d"

// Service provides address derivation functionality
type Service interface {
	// DeriveAddress derives an address from seed along a BIP44 path
	DeriveAddress(ctx context.Context, seed []byte, path string, chainType string) (string, error)

	// DerivePrivateKey derives a private key from seed
	// WARNING: Private key should be cleared after use
	DerivePrivateKey(ctx context.Context, seed []byte, path string, chainType string) ([]byte, error)

	// GetBIP44Path gets the BIP44 path for an account index
	GetBIP44Path(addressIndex int) string
}
