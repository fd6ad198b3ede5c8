package keystore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util/command"
	"github/chapool/go-txpipeline/internal/wallet/address"
	"github/chapool/go-txpipeline/internal/wallet/keystore"
	"github/chapool/go-txpipeline/internal/wallet/seed"
)

const mnemonicEntropyBits = 256

type createFlags struct {
	Path   string
	Import bool
}

func newCreate() *cobra.Command {
	var flags createFlags

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Creates an encrypted keystore",
		Long: `Generates a new 24 word mnemonic, or imports one with --import,
and encrypts it with a password into a keystore file.
The generated mnemonic is printed once, write it down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			if flags.Path == "" {
				flags.Path = cfg.Signer.KeystorePath
			}

			var mnemonic string
			if flags.Import {
				entered, err := keystore.PromptPassword("Enter mnemonic: ")
				if err != nil {
					return err
				}
				mnemonic = entered
			}

			password, err := keystore.PromptNewPassword()
			if err != nil {
				return err
			}

			return create(cmd.Context(), cmd.OutOrStdout(), keystore.NewService(keystore.StandardCost), cfg.Signer, flags.Path, mnemonic, password)
		},
	}

	cmd.Flags().StringVar(&flags.Path, "path", "", "Keystore file, defaults to SIGNER_KEYSTORE_PATH")
	cmd.Flags().BoolVar(&flags.Import, "import", false, "Import an existing mnemonic instead of generating one")

	return cmd
}

// create writes the keystore and prints the account it unlocks. An empty mnemonic generates one.
func create(ctx context.Context, out io.Writer, keystoreService keystore.Service, cfg config.Signer, path string, mnemonic string, password string) error {
	generated := mnemonic == ""
	if generated {
		entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
		if err != nil {
			return errors.Wrap(err, "failed to generate entropy")
		}

		mnemonic, err = bip39.NewMnemonic(entropy)
		if err != nil {
			return errors.Wrap(err, "failed to generate mnemonic")
		}
	}

	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return errors.New("invalid mnemonic")
	}

	exists, err := keystoreService.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("keystore %s already exists", path)
	}

	seedManager := seed.NewManager()
	if err := seedManager.Initialize(mnemonic, cfg.Passphrase); err != nil {
		return err
	}
	defer seedManager.Clear()

	seedBytes := seedManager.GetSeed()
	defer address.Zero(seedBytes)

	addresses := address.NewService(cfg.PathTemplate)
	account, err := addresses.DeriveAddress(ctx, seedBytes, addresses.GetBIP44Path(cfg.AccountIndex), address.ChainTypeEVM)
	if err != nil {
		return err
	}

	if err := keystoreService.Create(ctx, path, mnemonic, password); err != nil {
		return err
	}

	if generated {
		fmt.Fprintf(out, "Mnemonic: %s\n", mnemonic)
	}
	fmt.Fprintf(out, "Keystore: %s\n", path)
	fmt.Fprintf(out, "Address:  %s\n", account)

	return nil
}
