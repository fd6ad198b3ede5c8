package send

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/util/command"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/signer"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
)

// ErrAttemptFailed is returned when the attempt ended in Failure
var ErrAttemptFailed = errors.New("transaction failed")

type Flags struct {
	Pipeline        string
	Kind            string
	Recipient       string
	Amount          string
	Currency        string
	Comment         string
	MinBuyAmount    string
	PaymentID       string
	ExpirySeconds   uint64
	EscrowSignature string
}

func New() *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Signs and broadcasts one transaction",
		Long: `Estimates the fee, signs with the configured signer and broadcasts
a single transaction, printing every state change.
Amounts are given in whole units, e.g. --amount 1.5 for 1.5 cUSD.
Interrupting the command cancels the attempt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			draft, err := flags.draft()
			if err != nil {
				return err
			}

			sgn, err := signer.FromConfig(cmd.Context(), cfg, os.Stdin, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, sgn, func(ctx context.Context, s *api.Server) error {
				return run(ctx, s, cmd.OutOrStdout(), flags.Pipeline, draft)
			})
		},
	}

	cmd.Flags().StringVar(&flags.Pipeline, "pipeline", saga.PipelineSendToken, "Pipeline to run the attempt on")
	cmd.Flags().StringVar(&flags.Kind, "kind", transaction.KindTokenTransfer.String(), "Transaction kind")
	cmd.Flags().StringVar(&flags.Recipient, "to", "", "Recipient address")
	cmd.Flags().StringVar(&flags.Amount, "amount", "", "Amount in whole units")
	cmd.Flags().StringVar(&flags.Currency, "currency", string(transaction.CurrencyCUSD), "Currency of the amount")
	cmd.Flags().StringVar(&flags.Comment, "comment", "", "Comment, switches token transfers to transferWithComment")
	cmd.Flags().StringVar(&flags.MinBuyAmount, "min-buy", "", "Exchange only: minimum amount to receive in whole units")
	cmd.Flags().StringVar(&flags.PaymentID, "payment-id", "", "Escrow only: payment id address")
	cmd.Flags().Uint64Var(&flags.ExpirySeconds, "expiry", 0, "Escrow transfer only: seconds until the payment can be reclaimed")
	cmd.Flags().StringVar(&flags.EscrowSignature, "escrow-signature", "", "Escrow withdraw only: 0x-prefixed signature")

	return cmd
}

func (f Flags) draft() (transaction.Draft, error) {
	kind, err := transaction.ParseKind(f.Kind)
	if err != nil {
		return transaction.Draft{}, err
	}

	currency, err := transaction.ParseCurrency(f.Currency)
	if err != nil {
		return transaction.Draft{}, err
	}

	amount, err := util.ParseUnits(f.Amount, util.TokenDecimals)
	if err != nil {
		return transaction.Draft{}, err
	}

	draft := transaction.Draft{
		Kind:      kind,
		Recipient: f.Recipient,
		Amount:    amount,
		Currency:  currency,
		Comment:   f.Comment,
	}

	if f.MinBuyAmount != "" {
		minBuy, err := util.ParseUnits(f.MinBuyAmount, util.TokenDecimals)
		if err != nil {
			return transaction.Draft{}, err
		}
		draft.Exchange = &transaction.ExchangeTerms{MinBuyAmount: minBuy}
	}

	if f.PaymentID != "" {
		draft.Escrow = &transaction.EscrowTerms{
			PaymentID:     f.PaymentID,
			ExpirySeconds: f.ExpirySeconds,
		}

		if f.EscrowSignature != "" {
			draft.Escrow.Signature, err = hexutil.Decode(f.EscrowSignature)
			if err != nil {
				return transaction.Draft{}, errors.Wrap(err, "invalid escrow signature")
			}
		}
	}

	return draft, nil
}

func run(ctx context.Context, s *api.Server, out io.Writer, name string, draft transaction.Draft) error {
	lang := s.Config.I18n.DefaultLanguage

	handle, err := s.Orchestrator.SubmitDraft(ctx, name, draft, nil, func(ev saga.Event) {
		switch ev.Type {
		case saga.EventSignatureRequired:
			fmt.Fprintln(out, s.I18n.Translate("pipeline.signatureRequired", lang))
		case saga.EventSigned:
			fmt.Fprintln(out, s.I18n.Translate("pipeline.signed", lang))
		case saga.EventStatus:
			log.Debug().Str("status", ev.State.Status.String()).Uint64("attempt", ev.State.Attempt).Msg("Status changed")
		}
	})
	if err != nil {
		return err
	}

	state, err := handle.Wait(ctx)
	if err != nil {
		s.Orchestrator.Cancel(name, handle.Attempt)
		return err
	}

	switch state.Status {
	case saga.StatusSuccess:
		fmt.Fprintf(out, "Sent %s %s\n", util.FormatUnits(draft.Amount, util.TokenDecimals), draft.Currency)
		fmt.Fprintf(out, "tx:    %s\n", state.Result.TxHash)
		fmt.Fprintf(out, "from:  %s\n", state.Result.From)
		fmt.Fprintf(out, "nonce: %d\n", state.Result.Nonce)

		return nil
	case saga.StatusFailure:
		fmt.Fprintf(out, "%s (%s)\n", state.Failure.Summary, state.Failure.Reason)

		return errors.Wrap(ErrAttemptFailed, string(state.Failure.Reason))
	case saga.StatusIdle, saga.StatusStarted:
	}

	return errors.New("attempt was cancelled")
}
