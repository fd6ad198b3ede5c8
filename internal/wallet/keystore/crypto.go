package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	keystoreVersion = 3
	saltSize        = 32
	ivSize          = 16
	aesKeySize      = 16
	macKeySize      = 16
	cipherName      = "aes-128-ctr"
	kdfName         = "scrypt"
	derivedKeyLen   = 32
)

// ErrInvalidPassword is returned when the keystore MAC does not verify
var ErrInvalidPassword = errors.New("invalid password")

// encryptMnemonic seals mnemonic with a scrypt-derived AES-128-CTR key and a keccak MAC
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func (s *service) encryptMnemonic(mnemonic string, password string) (*File, error) {
	salt, err := randomBytes(saltSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	iv, err := randomBytes(ivSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate IV")
	}

	kdf := KDFParams{
		DKLen: derivedKeyLen,
		N:     s.cost.N,
		P:     s.cost.P,
		R:     s.cost.R,
		Salt:  hex.EncodeToString(salt),
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, kdf.N, kdf.R, kdf.P, kdf.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}
	defer zero(derivedKey)

	ciphertext, err := aes128CTR(derivedKey[:aesKeySize], iv, []byte(mnemonic))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt mnemonic")
	}

	return &File{
		Version: keystoreVersion,
		ID:      uuid.New().String(),
		Crypto: CryptoBlock{
			Cipher:       cipherName,
			CipherText:   hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			KDF:          kdfName,
			KDFParams:    kdf,
			MAC:          hex.EncodeToString(calculateMAC(derivedKey[aesKeySize:aesKeySize+macKeySize], ciphertext)),
		},
	}, nil
}

// decryptMnemonic reverses encryptMnemonic, verifying the MAC before decrypting
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func decryptMnemonic(file *File, password string) (string, error) {
	if file.Crypto.Cipher != cipherName || file.Crypto.KDF != kdfName {
		return "", errors.Errorf("unsupported keystore cipher %q/%q", file.Crypto.Cipher, file.Crypto.KDF)
	}

	params := file.Crypto.KDFParams
	if params.DKLen < aesKeySize+macKeySize {
		return "", errors.Errorf("derived key length %d too short", params.DKLen)
	}

	salt, err := hex.DecodeString(params.Salt)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode salt")
	}

	iv, err := hex.DecodeString(file.Crypto.CipherParams.IV)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode IV")
	}

	ciphertext, err := hex.DecodeString(file.Crypto.CipherText)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode ciphertext")
	}

	expectedMAC, err := hex.DecodeString(file.Crypto.MAC)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode MAC")
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive key")
	}
	defer zero(derivedKey)

	mac := calculateMAC(derivedKey[aesKeySize:aesKeySize+macKeySize], ciphertext)
	if subtle.ConstantTimeCompare(mac, expectedMAC) != 1 {
		return "", ErrInvalidPassword
	}

	plaintext, err := aes128CTR(derivedKey[:aesKeySize], iv, ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "failed to decrypt mnemonic")
	}

	return string(plaintext), nil
}

// aes128CTR applies the AES-128-CTR keystream; CTR is symmetric so it both encrypts and decrypts
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func aes128CTR(key []byte, iv []byte, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)

	return out, nil
}

// calculateMAC is Keccak256(derivedKey[16:32] || ciphertext), as in keystore v3
func calculateMAC(key []byte, ciphertext []byte) []byte {
	return crypto.Keccak256(key, ciphertext)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return b, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
