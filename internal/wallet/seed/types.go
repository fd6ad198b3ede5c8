package seed

// Manager holds the BIP39 seed of an unlocked wallet for the lifetime of the process.
// It is safe for concurrent use.
type Manager interface {
	// Initialize replaces any held seed with the one derived from mnemonic and passphrase
	Initialize(mnemonic string, passphrase string) error
	// GetSeed returns a copy of the seed, nil when locked
	GetSeed() []byte
	IsInitialized() bool
	// Clear zeroes the seed
	Clear()
}
