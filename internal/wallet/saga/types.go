package saga

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

// Pipeline names used by the wallet
const (
	PipelineSendToken     = "sendToken"
	PipelineExchangeToken = "exchangeToken"
	PipelineImportWallet  = "importWallet"
)

// Status is the Idle -> Started -> Success | Failure protocol
type Status int

const (
	StatusIdle Status = iota
	StatusStarted
	StatusSuccess
	StatusFailure
)

var statusNames = [...]string{
	StatusIdle:    "idle",
	StatusStarted: "started",
	StatusSuccess: "success",
	StatusFailure: "failure",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}

	return statusNames[s]
}

// Terminal reports whether s ends an attempt
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, errors.Errorf("invalid status %d", int(s))
	}

	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}

	return errors.Errorf("unknown status %q", text)
}

// Result is attached to a successful attempt
type Result struct {
	TxHash         string `json:"txHash"`
	RawTransaction string `json:"rawTransaction"` // 0x-prefixed hex
	Nonce          uint64 `json:"nonce"`
	From           string `json:"from"`
}

// State is the committed state of one pipeline
type State struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Attempt uint64 `json:"attempt"`
	// Failure is set iff Status is StatusFailure
	Failure   *txfail.Error `json:"failure,omitempty"`
	Result    *Result       `json:"result,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (s State) clone() State {
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}

	return s
}

// EventType distinguishes status transitions from attempt side effects
type EventType string

const (
	// EventStatus is a committed transition
	EventStatus EventType = "status"
	// EventSignatureRequired asks the user to confirm on the signing device
	EventSignatureRequired EventType = "signature_required"
	// EventSigned reports that the device returned a signature and broadcast is next
	EventSigned EventType = "signed"
)

// Event is delivered to subscribers in commit order
type Event struct {
	Seq   uint64    `json:"seq"`
	Type  EventType `json:"type"`
	State State     `json:"state"`
}

var (
	// ErrAlreadyStarted is returned when an attempt is started without a reset in between
	ErrAlreadyStarted = errors.New("pipeline already started")
	// ErrStaleAttempt is returned for writes carrying an attempt token that is no longer live
	ErrStaleAttempt = txfail.New(txfail.ReasonStaleAttemptDiscarded, "attempt is no longer live")
	// ErrInvalidTransition is returned for transitions the protocol does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
)
