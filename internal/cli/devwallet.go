package cli

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/wallet"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	devWords        int
	devAccounts     uint32
	devPassphrase   bool
	devMnemonicFile string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var devwalletCmd = &cobra.Command{
	Use:   "devwallet",
	Short: "Manage the local development wallet",
	Long: `Manage the local development wallet.

The development wallet keeps a BIP39 seed in an age-encrypted keystore and
signs transactions itself, sending them through network.rpc. Use it against
a local node or a test network:

  idealink config set provider.mode devwallet`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var devwalletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a development wallet from a new mnemonic",
	Long: `Generate a new BIP39 mnemonic, derive accounts along m/44'/60'/0'/0/i and
store the seed encrypted with your password.

The mnemonic is shown once. Write it down; it is the only way to recover
the wallet.`,
	Example: `  idealink devwallet create
  idealink devwallet create --words 24 --accounts 3`,
	Args: cobra.NoArgs,
	RunE: runDevwalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var devwalletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create a development wallet from an existing mnemonic",
	Long: `Create a development wallet from an existing BIP39 mnemonic. Numbered lists,
bullets, commas and extra whitespace are accepted; misspelled words are
reported with suggestions.`,
	Example: `  idealink devwallet import
  idealink devwallet import --mnemonic-file ./seed.txt`,
	Args: cobra.NoArgs,
	RunE: runDevwalletImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var devwalletAddressCmd = &cobra.Command{
	Use:     "address",
	Short:   "List the development wallet's accounts",
	Long:    `List the accounts stored in the development wallet. No password is needed.`,
	Example: `  idealink devwallet address`,
	Args:    cobra.NoArgs,
	RunE:    runDevwalletAddress,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	devwalletCmd.GroupID = "wallet"
	rootCmd.AddCommand(devwalletCmd)
	devwalletCmd.AddCommand(devwalletCreateCmd, devwalletImportCmd, devwalletAddressCmd)

	devwalletCreateCmd.Flags().IntVar(&devWords, "words", 12, "mnemonic length: 12 or 24")
	for _, c := range []*cobra.Command{devwalletCreateCmd, devwalletImportCmd} {
		c.Flags().Uint32Var(&devAccounts, "accounts", 0, "number of accounts to derive (default: devwallet.accounts)")
		c.Flags().BoolVar(&devPassphrase, "passphrase", false, "prompt for an optional BIP39 passphrase")
	}
	devwalletImportCmd.Flags().StringVar(&devMnemonicFile, "mnemonic-file", "", "read the mnemonic from a file")
}

type devwalletView struct {
	Keystore  string   `json:"keystore"`
	Addresses []string `json:"addresses"`
	Active    uint32   `json:"active"`
	Mnemonic  string   `json:"mnemonic,omitempty"`
}

func runDevwalletCreate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	mnemonic, err := wallet.GenerateMnemonic(devWords)
	if err != nil {
		return err
	}

	ks, err := createKeystore(cc, mnemonic)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	view := devwalletView{Keystore: ks.Path(), Addresses: ks.Addresses, Active: cc.Cfg.DevWallet.AccountIndex, Mnemonic: mnemonic}
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, view)
	}

	output.Successf(w, "Development wallet created at %s", ks.Path())
	outln(w)
	output.Warn(w, "Write down your mnemonic. It is shown only once:")
	outln(w)
	for i, word := range strings.Fields(mnemonic) {
		out(w, "  %2d. %s\n", i+1, word)
	}
	outln(w)
	return printAccounts(w, ks.Addresses, cc.Cfg.DevWallet.AccountIndex)
}

func runDevwalletImport(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	var mnemonic string
	if devMnemonicFile != "" {
		data, err := os.ReadFile(devMnemonicFile) //nolint:gosec // user-provided path
		if err != nil {
			return err
		}
		mnemonic = string(data)
	} else {
		var err error
		if mnemonic, err = promptMnemonicFn(); err != nil {
			return err
		}
	}
	if err := wallet.ValidateMnemonic(mnemonic); err != nil {
		return err
	}

	ks, err := createKeystore(cc, mnemonic)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, devwalletView{Keystore: ks.Path(), Addresses: ks.Addresses, Active: cc.Cfg.DevWallet.AccountIndex})
	}
	output.Successf(w, "Development wallet imported to %s", ks.Path())
	return printAccounts(w, ks.Addresses, cc.Cfg.DevWallet.AccountIndex)
}

func createKeystore(cc *CommandContext, mnemonic string) (*wallet.Keystore, error) {
	path := cc.Cfg.KeystorePath()
	if wallet.KeystoreExists(path) {
		return nil, ilerr.WithSuggestion(
			ilerr.WithDetails(ilerr.ErrKeystoreExists, map[string]string{"path": path}),
			"Remove the existing keystore or set devwallet.keystore to another file")
	}

	var passphrase string
	if devPassphrase {
		p, err := promptPasswordFn("BIP39 passphrase (optional): ")
		if err != nil {
			return nil, err
		}
		passphrase = string(p)
		wallet.ZeroBytes(p)
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return nil, err
	}
	defer wallet.ZeroBytes(password)

	accounts := devAccounts
	if accounts == 0 {
		accounts = cc.Cfg.DevWallet.Accounts
	}
	return wallet.CreateKeystore(path, wallet.CreateParams{
		Mnemonic:   mnemonic,
		Passphrase: passphrase,
		Password:   string(password),
		Accounts:   accounts,
		WorkFactor: keystoreWorkFactor,
	})
}

// keystoreWorkFactor is the scrypt cost for new keystores. Tests lower it.
//
//nolint:gochecknoglobals // replaced in tests
var keystoreWorkFactor = wallet.DefaultWorkFactor

func runDevwalletAddress(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ks, err := wallet.LoadKeystore(cc.Cfg.KeystorePath())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, devwalletView{Keystore: ks.Path(), Addresses: ks.Addresses, Active: cc.Cfg.DevWallet.AccountIndex})
	}
	return printAccounts(w, ks.Addresses, cc.Cfg.DevWallet.AccountIndex)
}

func printAccounts(w io.Writer, addresses []string, active uint32) error {
	t := output.NewTable("", "INDEX", "ADDRESS", "PATH")
	t.AlignRight(1)
	for i, addr := range addresses {
		marker := ""
		if uint32(i) == active { //nolint:gosec // bounded by wallet.MaxAccounts
			marker = "*"
		}
		t.AddRow(marker, strconv.Itoa(i), addr, wallet.DerivationPathFor(uint32(i))) //nolint:gosec // bounded by wallet.MaxAccounts
	}
	return t.Render(w)
}
