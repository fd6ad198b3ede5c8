package seed

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned when the phrase fails the BIP39 word list or checksum
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

const entropyBits = 256

type manager struct {
	mu   sync.RWMutex
	seed []byte
}

// NewManager returns a locked Manager
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewManager() Manager {
	return &manager{}
}

func (m *manager) Initialize(mnemonic string, passphrase string) error {
	seed, err := bip39.NewSeedWithErrorChecking(normalize(mnemonic), passphrase)
	if err != nil {
		return errors.Wrap(ErrInvalidMnemonic, err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	zero(m.seed)
	m.seed = seed

	return nil
}

func (m *manager) GetSeed() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.seed == nil {
		return nil
	}

	return append([]byte(nil), m.seed...)
}

func (m *manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.seed != nil
}

func (m *manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	zero(m.seed)
	m.seed = nil
}

// NewMnemonic generates a fresh 24 word BIP39 mnemonic
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate entropy")
	}
	defer zero(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode mnemonic")
	}

	return mnemonic, nil
}

// normalize collapses the whitespace users paste around and between words
func normalize(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
