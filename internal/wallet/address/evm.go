package address

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

const hardenedOffset = bip32.FirstHardenedChild

type service struct {
	pathTemplate string
}

// NewService creates an address Service deriving along pathTemplate,
// a printf template with a single %d for the account index
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(pathTemplate string) Service {
	if pathTemplate == "" {
		pathTemplate = DefaultPathTemplate
	}

	return &service{pathTemplate: pathTemplate}
}

// GetBIP44Path gets the BIP44 path for an account index
func (s *service) GetBIP44Path(addressIndex int) string {
	return fmt.Sprintf(s.pathTemplate, addressIndex)
}

// DeriveAddress derives an EVM address from seed and BIP44 path
func (s *service) DeriveAddress(ctx context.Context, seed []byte, path string, chainType string) (string, error) {
	privateKey, err := s.DerivePrivateKey(ctx, seed, path, chainType)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive private key")
	}
	defer Zero(privateKey)

	ecdsaPrivateKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert to ECDSA private key")
	}

	publicKeyECDSA, ok := ecdsaPrivateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", errors.New("failed to cast public key to ECDSA")
	}

	return crypto.PubkeyToAddress(*publicKeyECDSA).Hex(), nil
}

// DerivePrivateKey derives a private key from seed and BIP44 path
// WARNING: Caller must clear the private key after use
func (s *service) DerivePrivateKey(_ context.Context, seed []byte, path string, chainType string) ([]byte, error) {
	if chainType != ChainTypeEVM {
		return nil, fmt.Errorf("unsupported chain type: %s", chainType)
	}

	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	out := make([]byte, len(key.Key))
	copy(out, key.Key)
	Zero(key.Key)

	return out, nil
}

// ParsePath parses a BIP44 path string into child indices
// Example: "m/44'/60'/0'/0/0" -> [2147483692, 2147483708, 2147483648, 0, 0]
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("invalid BIP44 path: %q", path)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if part == "" {
			return nil, fmt.Errorf("invalid BIP44 path: %q", path)
		}

		offset := uint32(0)
		if strings.HasSuffix(part, "'") {
			offset = hardenedOffset
			part = strings.TrimSuffix(part, "'")
		}

		index, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment: %q", part)
		}

		indices = append(indices, uint32(index)+offset)
	}

	return indices, nil
}

// Zero overwrites key material in place
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
