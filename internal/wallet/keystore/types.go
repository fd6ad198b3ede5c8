package keystore

// File is a keystore v3 document whose ciphertext is a BIP39 mnemonic rather than a raw key
type File struct {
	Version int         `json:"version"`
	ID      string      `json:"id"`
	Crypto  CryptoBlock `json:"crypto"`
}

type CryptoBlock struct {
	Cipher       string       `json:"cipher"`
	CipherText   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

type CipherParams struct {
	IV string `json:"iv"`
}

type KDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	P     int    `json:"p"`
	R     int    `json:"r"`
	Salt  string `json:"salt"`
}

// Cost selects the scrypt work factors used for new keystores.
// Unlock always reads the factors stored in the file.
type Cost struct {
	N int
	R int
	P int
}

var (
	// StandardCost matches geth's StandardScryptN/P
	StandardCost = Cost{N: 1 << 18, R: 8, P: 1}
	// LightCost is for tests and throwaway keystores
	LightCost = Cost{N: 1 << 12, R: 8, P: 6}
)
