package tx

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/util/command"
	"github/chapool/go-txpipeline/internal/wallet/signer"
)

// keccak256("Transfer(address,address,uint256)")
var transferEventSig = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// ErrPending is returned for transactions that are not mined yet
var ErrPending = errors.New("transaction is still pending")

type receiptClient interface {
	TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

func newReceipt() *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <tx-hash>",
		Short: "Checks a broadcast transaction",
		Long: `Prints the receipt of a transaction returned by the pipeline,
including token transfers emitted by the configured contracts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			contracts, err := signer.ContractsFromConfig(cfg.Chain)
			if err != nil {
				return err
			}

			client, err := command.ConnectChain(cmd.Context(), cfg.Chain)
			if err != nil {
				return err
			}
			defer client.Close()

			return printReceipt(cmd.Context(), cmd.OutOrStdout(), client, contracts, args[0])
		},
	}
}

func printReceipt(ctx context.Context, out io.Writer, client receiptClient, contracts signer.Contracts, hash string) error {
	if len(common.FromHex(hash)) != common.HashLength {
		return errors.Errorf("invalid transaction hash %q", hash)
	}
	txHash := common.HexToHash(hash)

	tx, isPending, err := client.TransactionByHash(ctx, txHash)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	if isPending {
		return ErrPending
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return errors.Wrap(err, "failed to get receipt")
	}

	status := "failed"
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = "success"
	}

	fmt.Fprintf(out, "Transaction: %s\n", txHash.Hex())
	fmt.Fprintf(out, "Status:      %s\n", status)
	fmt.Fprintf(out, "Block:       %s\n", receipt.BlockNumber)
	fmt.Fprintf(out, "Gas used:    %d\n", receipt.GasUsed)

	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		fmt.Fprintf(out, "From:        %s\n", from.Hex())
	}

	if to := tx.To(); to != nil {
		fmt.Fprintf(out, "To:          %s\n", to.Hex())
	} else {
		fmt.Fprintln(out, "To:          contract creation")
	}

	fmt.Fprintf(out, "Value:       %s CELO\n", util.FormatUnits(tx.Value(), util.TokenDecimals))

	for i, entry := range receipt.Logs {
		if len(entry.Topics) < 3 || entry.Topics[0] != transferEventSig { //nolint:mnd // event signature plus two indexed addresses
			continue
		}

		fmt.Fprintf(out, "Log #%d: %s transfer %s -> %s: %s\n",
			i,
			tokenName(contracts, entry.Address),
			common.BytesToAddress(entry.Topics[1].Bytes()).Hex(),
			common.BytesToAddress(entry.Topics[2].Bytes()).Hex(),
			util.FormatUnits(new(big.Int).SetBytes(entry.Data), util.TokenDecimals),
		)
	}

	return nil
}

func tokenName(contracts signer.Contracts, token common.Address) string {
	switch token {
	case contracts.GoldToken:
		return "CELO"
	case contracts.StableToken:
		return "cUSD"
	default:
		return token.Hex()
	}
}
