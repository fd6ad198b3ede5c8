package keystore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/util"
)

// ErrKeystoreExists is returned when Create would overwrite an existing file
var ErrKeystoreExists = errors.New("keystore already exists")

// Service provides keystore encryption and decryption functionality
type Service interface {
	// Create encrypts a mnemonic into a keystore file at path
	Create(ctx context.Context, path string, mnemonic string, password string) error

	// Unlock decrypts the mnemonic stored at path
	Unlock(ctx context.Context, path string, password string) (string, error)

	// Exists checks if a keystore file exists at path
	Exists(path string) (bool, error)
}

type service struct {
	cost Cost
}

// NewService creates a new keystore Service. A zero cost uses StandardCost.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(cost Cost) Service {
	if cost == (Cost{}) {
		cost = StandardCost
	}

	return &service{cost: cost}
}

// Create encrypts a mnemonic into a keystore file at path
func (s *service) Create(ctx context.Context, path string, mnemonic string, password string) error {
	log := util.LogFromContext(ctx)

	exists, err := s.Exists(path)
	if err != nil {
		return errors.Wrap(err, "failed to check keystore existence")
	}
	if exists {
		return ErrKeystoreExists
	}

	file, err := s.encryptMnemonic(mnemonic, password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encrypt mnemonic")
		return errors.Wrap(err, "failed to encrypt mnemonic")
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal keystore JSON")
	}

	//nolint:mnd // owner-only directory
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create keystore directory")
	}

	//nolint:mnd // owner-only file
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write keystore")
	}

	log.Info().Str("path", path).Str("id", file.ID).Msg("Keystore created")

	return nil
}

// Unlock decrypts the mnemonic stored at path
func (s *service) Unlock(ctx context.Context, path string, password string) (string, error) {
	log := util.LogFromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read keystore")
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	mnemonic, err := decryptMnemonic(&file, password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decrypt mnemonic")
		return "", errors.Wrap(err, "failed to decrypt mnemonic")
	}

	return mnemonic, nil
}

// Exists checks if a keystore file exists at path
func (s *service) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, errors.Wrap(err, "failed to stat keystore")
}
