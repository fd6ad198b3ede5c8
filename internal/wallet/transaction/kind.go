package transaction

import "fmt"

// Kind is the closed set of transaction kinds the pipeline can prepare.
// Switches over Kind must be exhaustive and panic on an unknown value.
type Kind int

const (
	kindInvalid Kind = iota
	KindNativeTransfer
	KindTokenTransfer
	KindTokenTransferWithComment
	KindTokenApprove
	KindTokenExchange
	KindEscrowTransfer
	KindEscrowWithdraw
	kindEnd
)

var kindNames = map[Kind]string{
	KindNativeTransfer:           "native_transfer",
	KindTokenTransfer:            "token_transfer",
	KindTokenTransferWithComment: "token_transfer_with_comment",
	KindTokenApprove:             "token_approve",
	KindTokenExchange:            "token_exchange",
	KindEscrowTransfer:           "escrow_transfer",
	KindEscrowWithdraw:           "escrow_withdraw",
}

// Kinds lists every valid kind
func Kinds() []Kind {
	kinds := make([]Kind, 0, int(kindEnd)-1)
	for k := kindInvalid + 1; k < kindEnd; k++ {
		kinds = append(kinds, k)
	}

	return kinds
}

// Valid reports whether k is one of the declared kinds
func (k Kind) Valid() bool {
	return k > kindInvalid && k < kindEnd
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses the wire name of a kind
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	return kindInvalid, fmt.Errorf("unknown transaction kind: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown transaction kind: %d", int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}

// UsesToken reports whether the kind moves the stable token through a contract call
func (k Kind) UsesToken() bool {
	switch k {
	case KindNativeTransfer:
		return false
	case KindTokenTransfer, KindTokenTransferWithComment, KindTokenApprove,
		KindTokenExchange, KindEscrowTransfer, KindEscrowWithdraw:
		return true
	case kindInvalid, kindEnd:
	}

	panic(fmt.Sprintf("transaction: unhandled kind %s", k))
}

// Gas limits per kind, chosen for Celo mainnet contracts with headroom
const (
	gasNativeTransfer           = 21000
	gasTokenTransfer            = 100000
	gasTokenTransferWithComment = 120000
	gasTokenApprove             = 60000
	gasTokenExchange            = 300000
	gasEscrowTransfer           = 250000
	gasEscrowWithdraw           = 200000
)

// GasLimit returns the gas limit used when quoting and signing a kind
func (k Kind) GasLimit() uint64 {
	switch k {
	case KindNativeTransfer:
		return gasNativeTransfer
	case KindTokenTransfer:
		return gasTokenTransfer
	case KindTokenTransferWithComment:
		return gasTokenTransferWithComment
	case KindTokenApprove:
		return gasTokenApprove
	case KindTokenExchange:
		return gasTokenExchange
	case KindEscrowTransfer:
		return gasEscrowTransfer
	case KindEscrowWithdraw:
		return gasEscrowWithdraw
	case kindInvalid, kindEnd:
	}

	panic(fmt.Sprintf("transaction: unhandled kind %s", k))
}
