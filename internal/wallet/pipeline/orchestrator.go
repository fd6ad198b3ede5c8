package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github/chapool/go-txpipeline/internal/metrics"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/fee"
	"github/chapool/go-txpipeline/internal/wallet/journal"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/signer"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

type prepareFunc func(ctx context.Context) (*transaction.Prepared, error)

// Orchestrator runs attempts through estimate, build, nonce, sign and broadcast,
// committing every transition to the saga store.
type Orchestrator struct {
	store      *saga.Store
	estimator  fee.Estimator
	signer     signer.Signer
	chain      Chain
	journal    journal.Journal
	summarizer Summarizer
	metrics    *metrics.Service
	clock      time2.Clock
	config     Config

	signatures *gocache.Cache

	mu       sync.Mutex
	inflight map[string]*attempt
}

// NewOrchestrator wires an Orchestrator. journal, summarizer and metricsService may be nil.
func NewOrchestrator(
	store *saga.Store,
	estimator fee.Estimator,
	sgn signer.Signer,
	chain Chain,
	j journal.Journal,
	summarizer Summarizer,
	metricsService *metrics.Service,
	clock time2.Clock,
	cfg Config,
) *Orchestrator {
	cfg = cfg.withDefaults()

	return &Orchestrator{
		store:      store,
		estimator:  estimator,
		signer:     sgn,
		chain:      chain,
		journal:    j,
		summarizer: summarizer,
		metrics:    metricsService,
		clock:      clock,
		config:     cfg,
		signatures: gocache.New(cfg.SignatureCacheTTL, 2*cfg.SignatureCacheTTL),
		inflight:   make(map[string]*attempt),
	}
}

// Store returns the status store attempts are committed to
func (o *Orchestrator) Store() *saga.Store {
	return o.store
}

// Signer describes the configured signer
func (o *Orchestrator) Signer() signer.Descriptor {
	return o.signer.Describe()
}

// Submit starts an attempt for an already prepared transaction.
// It only returns an error when the pipeline is not Idle; every later failure ends up in the Failure state.
func (o *Orchestrator) Submit(ctx context.Context, name string, prepared *transaction.Prepared, onEvent EventFunc) (*Handle, error) {
	prepared = prepared.Clone()

	return o.start(ctx, name, onEvent, func(_ context.Context) (*transaction.Prepared, error) {
		if prepared == nil {
			return nil, txfail.New(txfail.ReasonInvalidDraft, "prepared transaction is required")
		}

		return prepared, nil
	})
}

// SubmitDraft starts an attempt for draft. Without candidate the fee is estimated
// inside the attempt, so cancelling it also discards the estimation.
func (o *Orchestrator) SubmitDraft(ctx context.Context, name string, draft transaction.Draft, candidate *transaction.FeeCandidate, onEvent EventFunc) (*Handle, error) {
	draft = draft.Normalize().Clone()
	candidate = candidate.Clone()

	return o.start(ctx, name, onEvent, func(ctx context.Context) (*transaction.Prepared, error) {
		if err := draft.Validate(); err != nil {
			return nil, err
		}

		if candidate == nil {
			estimated, err := o.estimate(ctx, draft)
			if err != nil {
				return nil, err
			}
			candidate = estimated
		}

		return transaction.BuildPrepared(draft, candidate)
	})
}

// Cancel abandons attempt if it is the live attempt of name and forces the pipeline back to Idle.
// A signer waiting for confirmation is aborted; whatever it returns later is discarded.
func (o *Orchestrator) Cancel(name string, attempt uint64) bool {
	// held so no new attempt can Begin between the store going Idle and the detach
	o.mu.Lock()
	if !o.store.Cancel(name, attempt) {
		o.mu.Unlock()
		return false
	}
	att := o.detach(name, attempt)
	o.mu.Unlock()

	o.abandon(att)

	return true
}

// Reset acknowledges a finished attempt and returns the pipeline to Idle.
// Resetting a Started pipeline cancels its attempt.
func (o *Orchestrator) Reset(name string) saga.State {
	o.mu.Lock()
	previous := o.store.Reset(name)
	var att *attempt
	if previous.Status == saga.StatusStarted {
		att = o.detach(name, previous.Attempt)
	}
	o.mu.Unlock()

	o.abandon(att)

	return o.store.Get(name)
}

func (o *Orchestrator) start(ctx context.Context, name string, onEvent EventFunc, prepare prepareFunc) (*Handle, error) {
	var sub *saga.Subscription
	if onEvent != nil {
		sub = o.store.Subscribe(name)
	}

	// held across Begin so a concurrent Cancel always finds the registered attempt
	o.mu.Lock()

	state, err := o.store.Begin(name)
	if err != nil {
		o.mu.Unlock()

		if sub != nil {
			sub.Close()
		}

		return nil, err
	}

	id := uuid.NewString()
	logger := util.LogFromContext(ctx).With().
		Str("pipeline", name).
		Uint64("attempt", state.Attempt).
		Str("attempt_id", id).
		Logger()

	// the attempt outlives the request that submitted it
	workCtx, cancel := context.WithCancel(logger.WithContext(context.WithoutCancel(ctx)))

	att := &attempt{
		name:      name,
		token:     state.Attempt,
		id:        id,
		startedAt: state.UpdatedAt,
		logger:    logger,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	o.inflight[name] = att

	o.mu.Unlock()

	o.metrics.AttemptStarted(name)
	logger.Info().Msg("Attempt started")

	if sub != nil {
		go forward(sub, att.token, onEvent)
	}

	go o.run(workCtx, att, prepare)

	return &Handle{
		Pipeline: name,
		Attempt:  att.token,
		ID:       id,
		attempt:  att,
	}, nil
}

func forward(sub *saga.Subscription, token uint64, onEvent EventFunc) {
	defer sub.Close()

	for ev := range sub.Events() {
		if ev.State.Attempt != token {
			continue
		}

		onEvent(ev)

		if ev.Type == saga.EventStatus && ev.State.Status != saga.StatusStarted {
			return
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, att *attempt, prepare prepareFunc) {
	defer att.cancel()

	result, err := o.execute(ctx, att, prepare)

	if ctx.Err() != nil {
		o.discard(att, result, err)
		o.abandon(att)
		return
	}

	status := saga.StatusSuccess
	var failure *txfail.Error
	if err != nil {
		status = saga.StatusFailure
		failure = o.failure(att, err)
	}

	state, rerr := o.store.Resolve(att.name, att.token, status, failure, result)
	if rerr != nil {
		// the store moved on without us, e.g. through SetStatus
		o.discard(att, result, err)

		o.mu.Lock()
		o.detach(att.name, att.token)
		o.mu.Unlock()

		o.abandon(att)
		return
	}

	o.finish(att, state)

	outcome := "success"
	if failure != nil {
		outcome = string(failure.Reason)
	}
	o.metrics.AttemptFinished(att.name, outcome)

	if result != nil {
		att.logger.Info().Str("tx_hash", result.TxHash).Uint64("nonce", result.Nonce).Msg("Transaction broadcast")
	}
}

func (o *Orchestrator) execute(ctx context.Context, att *attempt, prepare prepareFunc) (*saga.Result, error) {
	prepared, err := prepare(ctx)
	if err != nil {
		return nil, err
	}

	if err := prepared.Draft.Validate(); err != nil {
		return nil, err
	}

	if prepared.Fee.Expired(o.clock.Now()) {
		return nil, txfail.Newf(txfail.ReasonEstimationRejected, "fee quote expired at %s", prepared.Fee.ValidUntil.Format(time.RFC3339))
	}

	if err := o.estimator.Verify(prepared.Draft.Descriptor(prepared.Fee.Currency), prepared.Fee); err != nil {
		return nil, err
	}

	desc := o.signer.Describe()

	chainID, err := o.chain.ChainID(ctx)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonNetworkUnavailable, "failed to get chain id")
	}

	nonce, err := o.chain.PendingNonceAt(ctx, desc.Address)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonNetworkUnavailable, "failed to get pending nonce")
	}

	key := signatureKey(prepared, nonce, chainID)

	signed, cached := o.cachedSignature(key)
	if !cached {
		if desc.RequiresExternalConfirmation {
			if err := o.store.Notify(att.name, att.token, saga.EventSignatureRequired); err != nil {
				return nil, err
			}
			att.logger.Info().Str("signer", string(desc.Kind)).Msg("Waiting for confirmation on signing device")
		}

		signed, err = o.sign(ctx, desc, &signer.Request{
			Prepared: prepared,
			Nonce:    nonce,
			ChainID:  chainID,
		})
		if err != nil {
			return nil, err
		}

		o.signatures.Set(key, signed, gocache.DefaultExpiration)
	}

	if err := o.store.Notify(att.name, att.token, saga.EventSigned); err != nil {
		return nil, err
	}

	if err := o.chain.SendTransaction(ctx, signed.Tx); err != nil {
		// the signature stays cached so a retry does not prompt the device again
		return nil, txfail.Wrap(err, txfail.ReasonBroadcastFailed, "node refused transaction")
	}

	o.signatures.Delete(key)

	return &saga.Result{
		TxHash:         signed.TxHash,
		RawTransaction: hexutil.Encode(signed.RawTransaction),
		Nonce:          nonce,
		From:           desc.Address.Hex(),
	}, nil
}

func (o *Orchestrator) estimate(ctx context.Context, draft transaction.Draft) (*transaction.FeeCandidate, error) {
	candidates, err := o.estimator.EstimateFee(ctx, draft.Descriptor(o.config.FeeCurrency), o.config.FeeTier+1)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, txfail.New(txfail.ReasonEstimationRejected, "no fee candidates")
	}

	chosen := candidates[min(o.config.FeeTier, len(candidates)-1)]

	return &chosen, nil
}

func (o *Orchestrator) sign(ctx context.Context, desc signer.Descriptor, req *signer.Request) (*signer.Signed, error) {
	type outcome struct {
		signed *signer.Signed
		err    error
	}

	signCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so a signer returning after the timeout does not leak the goroutine
	results := make(chan outcome, 1)
	started := time.Now()

	go func() {
		signed, err := o.signer.Sign(signCtx, req)
		results <- outcome{signed: signed, err: err}
	}()

	timer := time.NewTimer(o.config.SignerTimeout)
	defer timer.Stop()

	select {
	case out := <-results:
		if out.err != nil {
			o.metrics.ObserveSigning(string(desc.Kind), string(txfail.ReasonOf(out.err)), time.Since(started))

			if _, ok := txfail.As(out.err); ok {
				return nil, out.err
			}

			return nil, txfail.Wrap(out.err, txfail.ReasonSignerUnavailable, "signer failed")
		}

		o.metrics.ObserveSigning(string(desc.Kind), "signed", time.Since(started))

		return out.signed, nil

	case <-timer.C:
		o.abortSigner()
		o.metrics.ObserveSigning(string(desc.Kind), string(txfail.ReasonSignerTimeout), time.Since(started))

		return nil, txfail.Newf(txfail.ReasonSignerTimeout, "no answer from signer within %s", o.config.SignerTimeout)

	case <-ctx.Done():
		o.abortSigner()

		return nil, ctx.Err()
	}
}

func (o *Orchestrator) abortSigner() {
	if aborter, ok := o.signer.(signer.Aborter); ok {
		aborter.Abort()
	}
}

func (o *Orchestrator) cachedSignature(key string) (*signer.Signed, bool) {
	value, ok := o.signatures.Get(key)
	o.metrics.SignatureCacheLookup(ok)
	if !ok {
		return nil, false
	}

	signed, ok := value.(*signer.Signed)

	return signed, ok
}

// failure classifies err and replaces its summary with user-facing text; the cause is logged
func (o *Orchestrator) failure(att *attempt, err error) *txfail.Error {
	failure, ok := txfail.As(err)
	if !ok {
		failure = txfail.Wrap(err, txfail.ReasonUnknown, "unexpected failure")
	}

	level := zerolog.WarnLevel
	if !txfail.UserFacing(failure.Reason) || failure.Reason == txfail.ReasonUnknown {
		level = zerolog.ErrorLevel
	}

	att.logger.WithLevel(level).
		Err(err).
		Str("reason", string(failure.Reason)).
		Bool("retryable", txfail.Retryable(failure.Reason)).
		Msg("Attempt failed")

	if o.summarizer != nil {
		failure = failure.WithSummary(o.summarizer.Summarize(failure.Reason))
	}

	return failure
}

// discard drops the outcome of an attempt that was cancelled or reset while running
func (o *Orchestrator) discard(att *attempt, result *saga.Result, err error) {
	o.metrics.StaleResult(att.name)

	event := att.logger.Debug()
	if result != nil {
		event = att.logger.Warn().Str("tx_hash", result.TxHash)
	}

	event.Err(err).Msg("Discarded result of abandoned attempt")
}

// detach removes the attempt token of name from inflight and returns it. o.mu must be held.
func (o *Orchestrator) detach(name string, token uint64) *attempt {
	att, ok := o.inflight[name]
	if !ok || att.token != token {
		return nil
	}
	delete(o.inflight, name)

	return att
}

// abandon stops att and completes it as cancelled, unless it already ended
func (o *Orchestrator) abandon(att *attempt) {
	if att == nil {
		return
	}

	att.cancel()

	state := saga.State{
		Name:      att.name,
		Status:    saga.StatusIdle,
		Attempt:   att.token,
		UpdatedAt: o.clock.Now(),
	}

	if att.complete(state) {
		o.metrics.AttemptFinished(att.name, "cancelled")
		o.record(att, state)
		att.logger.Info().Msg("Attempt cancelled")
	}
}

func (o *Orchestrator) finish(att *attempt, state saga.State) {
	o.mu.Lock()
	if o.inflight[att.name] == att {
		delete(o.inflight, att.name)
	}
	o.mu.Unlock()

	if att.complete(state) {
		o.record(att, state)
	}
}

func (o *Orchestrator) record(att *attempt, state saga.State) {
	if o.journal == nil {
		return
	}

	entry := journal.Entry{
		ID:         att.id,
		Pipeline:   att.name,
		Attempt:    att.token,
		Status:     state.Status,
		StartedAt:  att.startedAt,
		FinishedAt: state.UpdatedAt,
	}

	if state.Failure != nil {
		entry.Reason = state.Failure.Reason
		entry.Summary = state.Failure.Summary
	}

	if state.Result != nil {
		nonce := state.Result.Nonce
		entry.TxHash = state.Result.TxHash
		entry.From = state.Result.From
		entry.Nonce = &nonce
	}

	ctx, cancel := context.WithTimeout(att.logger.WithContext(context.Background()), journalTimeout)
	defer cancel()

	if err := o.journal.Append(ctx, entry); err != nil {
		att.logger.Error().Err(err).Msg("Failed to append attempt to journal")
	}
}

// signatureKey only matches while the nonce is unchanged, so a cached transaction is never sent out of order
func signatureKey(prepared *transaction.Prepared, nonce uint64, chainID *big.Int) string {
	return fmt.Sprintf("%s/%s/%d", chainID, prepared.Hash().Hex(), nonce)
}
