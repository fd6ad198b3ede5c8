package transaction

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// BuildPrepared merges a draft with a fee candidate.
// Amounts stay in integer base units: when draft and fee share a currency
// Total = Amount + Fee, otherwise Total = Amount and the fee is tracked separately.
// It performs no network or signer access and only fails on contract violations.
func BuildPrepared(draft Draft, fee *FeeCandidate) (*Prepared, error) {
	if fee == nil {
		return nil, invalid("fee candidate is required")
	}

	if draft.Amount == nil || draft.Amount.Sign() < 0 {
		return nil, invalid("amount must be a non-negative integer")
	}

	if fee.Amount == nil || fee.Amount.Sign() < 0 {
		return nil, invalid("fee must be a non-negative integer")
	}

	if !draft.Currency.Valid() || !fee.Currency.Valid() {
		return nil, invalid("unsupported currency pair %q/%q", draft.Currency, fee.Currency)
	}

	prepared := &Prepared{
		Draft: draft.Clone(),
		Fee:   *fee.Clone(),
	}

	if draft.Currency == fee.Currency {
		prepared.Total = new(big.Int).Add(draft.Amount, fee.Amount)
	} else {
		prepared.Total = new(big.Int).Set(draft.Amount)
		prepared.FeeSeparate = true
	}

	return prepared, nil
}

// Hash is a content hash over the fields that end up in the signed transaction.
// Equal hashes mean a cached signature can be reused.
func (p *Prepared) Hash() common.Hash {
	var buf []byte

	writeString := func(s string) {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(s))) //nolint:gosec // lengths are bounded
		buf = append(buf, s...)
	}
	writeInt := func(v *big.Int) {
		if v == nil {
			writeString("")
			return
		}
		writeString(v.String())
	}

	d := p.Draft
	writeString(d.Kind.String())
	writeString(d.Recipient)
	writeInt(d.Amount)
	writeString(string(d.Currency))
	writeString(d.Comment)

	if d.Exchange != nil {
		writeInt(d.Exchange.MinBuyAmount)
	}

	if d.Escrow != nil {
		writeString(d.Escrow.PaymentID)
		buf = binary.BigEndian.AppendUint64(buf, d.Escrow.ExpirySeconds)
		writeString(string(d.Escrow.Signature))
	}

	writeString(string(p.Fee.Currency))
	buf = binary.BigEndian.AppendUint64(buf, p.Fee.Gas)
	writeInt(p.Fee.MaxFeePerGas)
	writeInt(p.Fee.MaxPriorityFeePerGas)

	return crypto.Keccak256Hash(buf)
}

// Clone returns a deep copy
func (p *Prepared) Clone() *Prepared {
	if p == nil {
		return nil
	}

	return &Prepared{
		Draft:       p.Draft.Clone(),
		Fee:         *p.Fee.Clone(),
		Total:       cloneInt(p.Total),
		FeeSeparate: p.FeeSeparate,
	}
}
