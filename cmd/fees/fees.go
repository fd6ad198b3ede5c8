package fees

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/util/command"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
)

type Flags struct {
	Kind        string
	Currency    string
	FeeCurrency string
	Count       int
}

func New() *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Quotes fees for a transaction type",
		Long:  `Asks the configured RPC nodes for fee candidates, cheapest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			desc, err := flags.descriptor(cfg)
			if err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, nil, func(ctx context.Context, s *api.Server) error {
				candidates, err := s.Estimator.EstimateFee(ctx, desc, flags.Count)
				if err != nil {
					return err
				}

				writeCandidates(cmd.OutOrStdout(), candidates)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.Kind, "kind", transaction.KindTokenTransfer.String(), "Transaction kind")
	cmd.Flags().StringVar(&flags.Currency, "currency", string(transaction.CurrencyCUSD), "Currency of the amount")
	cmd.Flags().StringVar(&flags.FeeCurrency, "fee-currency", "", "Currency to pay the fee in, defaults to PIPELINE_FEE_CURRENCY")
	cmd.Flags().IntVar(&flags.Count, "count", 3, "Number of fee tiers") //nolint:mnd

	return cmd
}

func writeCandidates(w io.Writer, candidates []transaction.FeeCandidate) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"TIER", "FEE", "GAS", "MAX FEE (GWEI)", "TIP (GWEI)", "VALID UNTIL"})
	table.SetCaption(true, fmt.Sprintf("%d candidates, cheapest first", len(candidates)))

	for _, c := range candidates {
		table.Append([]string{
			strconv.Itoa(c.Tier),
			util.FormatUnits(c.Amount, util.TokenDecimals) + " " + string(c.Currency),
			strconv.FormatUint(c.Gas, 10),
			util.FormatUnits(c.MaxFeePerGas, util.GweiDecimals),
			util.FormatUnits(c.MaxPriorityFeePerGas, util.GweiDecimals),
			c.ValidUntil.Format(time.RFC3339),
		})
	}

	table.Render()
}

func (f Flags) descriptor(cfg config.Server) (transaction.Descriptor, error) {
	kind, err := transaction.ParseKind(f.Kind)
	if err != nil {
		return transaction.Descriptor{}, err
	}

	currency, err := transaction.ParseCurrency(f.Currency)
	if err != nil {
		return transaction.Descriptor{}, err
	}

	feeCurrency := f.FeeCurrency
	if feeCurrency == "" {
		feeCurrency = cfg.Pipeline.FeeCurrency
	}

	parsedFeeCurrency, err := transaction.ParseCurrency(feeCurrency)
	if err != nil {
		return transaction.Descriptor{}, err
	}

	return transaction.Descriptor{
		Kind:        kind,
		Currency:    currency,
		FeeCurrency: parsedFeeCurrency,
	}, nil
}
