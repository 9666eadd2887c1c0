package cli

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/settlement"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	settlePrice     string
	settleAmount    string
	vestingSeconds  int64
	investTokenized bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var quoteCmd = &cobra.Command{
	Use:   "quote <idea>",
	Short: "Convert a fiat price to the native amount you would pay",
	Long: `Convert a fiat price to the native amount at the configured exchange rate,
rounded to four decimal places. No wallet is needed.`,
	Example: `  idealink quote idea7 --price 20
  idealink quote idea7 --price 12.50 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var purchaseCmd = &cobra.Command{
	Use:   "purchase <idea>",
	Short: "Buy outright ownership of an idea",
	Long: `Buy an idea for its fiat price paid in the native currency.

The quoted amount must be confirmed, either interactively or by passing the
exact amount with --amount. The transaction is simulated before the wallet
is asked to sign it, so a purchase that would revert is never sent.`,
	Example: `  idealink purchase idea7 --price 20
  idealink purchase idea7 --price 20 --amount 1.0000`,
	Args: cobra.ExactArgs(1),
	RunE: runPurchase,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var investCmd = &cobra.Command{
	Use:   "invest <idea>",
	Short: "Invest in an idea and receive vesting reward tokens",
	Long: `Invest the native equivalent of a fiat amount in an idea. Reward tokens are
minted at the contract's rate and vest linearly.

Ideas that are not tokenized vest over the default period (30 days unless
settlement.default_vesting_days says otherwise). Tokenized ideas take their
vesting period from --vesting-seconds.`,
	Example: `  idealink invest idea3 --price 100
  idealink invest idea3 --price 100 --tokenized --vesting-seconds 86400 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runInvest,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var releaseCmd = &cobra.Command{
	Use:   "release <idea>",
	Short: "Claim vested reward tokens",
	Long: `Claim the reward tokens of an investment that have vested and not yet been
released. When nothing is releasable no transaction is sent.`,
	Example: `  idealink release idea3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRelease,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	for _, c := range []*cobra.Command{quoteCmd, purchaseCmd, investCmd, releaseCmd} {
		c.GroupID = "settle"
		rootCmd.AddCommand(c)
	}

	for _, c := range []*cobra.Command{quoteCmd, purchaseCmd, investCmd} {
		c.Flags().StringVar(&settlePrice, "price", "", "fiat price of the idea")
		_ = c.MarkFlagRequired("price")
	}
	for _, c := range []*cobra.Command{purchaseCmd, investCmd} {
		c.Flags().StringVar(&settleAmount, "amount", "", "confirm the quoted native amount without prompting")
	}
	for _, c := range []*cobra.Command{purchaseCmd, investCmd, releaseCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")
	}

	investCmd.Flags().BoolVar(&investTokenized, "tokenized", false, "the idea is tokenized and uses --vesting-seconds")
	investCmd.Flags().Int64Var(&vestingSeconds, "vesting-seconds", 0, "vesting period of a tokenized idea in seconds")
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			"price":            s,
			ilerr.DetailReason: "price must be a decimal number",
		})
	}
	return price, nil
}

type quoteView struct {
	Idea         string `json:"idea"`
	Price        string `json:"price"`
	NativeAmount string `json:"native_amount"`
	Symbol       string `json:"symbol"`
	ExchangeRate string `json:"exchange_rate"`
	RewardTokens string `json:"reward_tokens_estimate"`
}

// quoteFor validates the idea and price and computes the native amount.
func quoteFor(cc *CommandContext, ideaRef string, price decimal.Decimal) (quoteView, decimal.Decimal, error) {
	if _, err := settlement.ParseIdeaID(ideaRef); err != nil {
		return quoteView{}, decimal.Zero, err
	}
	rate, err := cc.Cfg.ExchangeRate()
	if err != nil {
		return quoteView{}, decimal.Zero, err
	}
	amount, err := settlement.Quote(price, rate)
	if err != nil {
		return quoteView{}, decimal.Zero, err
	}
	return quoteView{
		Idea:         ideaRef,
		Price:        price.String(),
		NativeAmount: settlement.FormatQuote(amount),
		Symbol:       cc.Cfg.Network.NativeSymbol,
		ExchangeRate: rate.String(),
		RewardTokens: amount.Mul(decimal.NewFromInt(cc.Cfg.Settlement.RewardRate)).String(),
	}, amount, nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	price, err := parsePrice(settlePrice)
	if err != nil {
		return err
	}
	q, _, err := quoteFor(cc, args[0], price)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, q)
	}
	out(w, "%s at %s: %s %s (rate %s per %s)\n", q.Idea, q.Price, q.NativeAmount, q.Symbol, q.ExchangeRate, q.Symbol)
	out(w, "Investing mints about %s reward tokens\n", q.RewardTokens)
	return nil
}

// confirmQuote turns --amount, --yes or an interactive answer into the
// amount confirmation the orchestrator checks.
func confirmQuote(cmd *cobra.Command, cc *CommandContext, q quoteView, action string) (settlement.SubmitOption, error) {
	if settleAmount != "" {
		return settlement.WithConfirmedAmount(settleAmount), nil
	}
	if !cc.Fmt.IsJSON() {
		out(cmd.ErrOrStderr(), "%s %s for %s %s (%s at %s per %s)\n",
			action, q.Idea, q.NativeAmount, q.Symbol, q.Price, q.ExchangeRate, q.Symbol)
	}
	if assumeYes || promptConfirmFn("Continue?") {
		return settlement.WithConfirmedAmount(q.NativeAmount), nil
	}
	return nil, ilerr.WithDetails(ilerr.ErrUserRejected, map[string]string{
		ilerr.DetailReason: "quote not confirmed",
	})
}

// submitFunc runs one orchestrator submission.
type submitFunc func(ctx context.Context, rt *runtime, opts ...settlement.SubmitOption) (settlement.Outcome, error)

// settle wires the runtime, connects when the input is valid, submits and
// prints the outcome. Invalid input is still submitted so the failed
// attempt is journaled, but no provider is dialed for it.
func settle(cmd *cobra.Command, cc *CommandContext, valid bool, submit submitFunc, opts ...settlement.SubmitOption) error {
	ctx, cancel := requestContext(cmd, cc)
	defer cancel()

	var (
		rt  *runtime
		err error
	)
	if valid {
		rt, err = newRuntime(ctx, cc, cmd.OutOrStdout())
	} else {
		rt, err = newOfflineRuntime(cc, cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}
	defer rt.Close()

	if valid {
		if _, err := rt.connect(ctx, cc, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	opts = append(opts, settlement.WithProgress(progress(cc, cmd.ErrOrStderr())))
	outcome, err := submit(ctx, rt, opts...)
	if err != nil {
		return err
	}
	return printOutcome(cmd.OutOrStdout(), cc, outcome)
}

func printOutcome(w io.Writer, cc *CommandContext, o settlement.Outcome) error {
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, o)
	}
	if cc.Cfg.IsVerbose() {
		out(w, "Attempt %s (%s)\n", o.Attempt.ID, o.Attempt.State)
	}
	if o.RewardEstimated {
		output.Warn(w, "Reward amount is an estimate; the Deposited event was not found in the receipt")
	}
	return nil
}

func runPurchase(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	ideaRef := args[0]

	price, err := parsePrice(settlePrice)
	if err != nil {
		return err
	}

	var opts []settlement.SubmitOption
	q, amount, err := quoteFor(cc, ideaRef, price)
	if err != nil && !ilerr.Is(err, ilerr.ErrInvalidIdeaID) {
		return err
	}
	valid := err == nil
	if valid {
		if settleAmount != "" {
			valid = settlement.ConfirmAmount(amount, settleAmount) == nil
		}
		confirm, cErr := confirmQuote(cmd, cc, q, "Purchase")
		if cErr != nil {
			return cErr
		}
		opts = append(opts, confirm)
	}

	return settle(cmd, cc, valid, func(ctx context.Context, rt *runtime, o ...settlement.SubmitOption) (settlement.Outcome, error) {
		return rt.orch.SubmitPurchase(ctx, ideaRef, price, o...)
	}, opts...)
}

func runInvest(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	ideaRef := args[0]

	if vestingSeconds != 0 && !investTokenized && !cc.Fmt.IsJSON() {
		output.Warn(cmd.ErrOrStderr(), "--vesting-seconds only applies with --tokenized; using the default vesting period")
	}

	price, err := parsePrice(settlePrice)
	if err != nil {
		return err
	}

	var opts []settlement.SubmitOption
	q, amount, err := quoteFor(cc, ideaRef, price)
	if err != nil && !ilerr.Is(err, ilerr.ErrInvalidIdeaID) {
		return err
	}
	valid := err == nil && (!investTokenized || (vestingSeconds > 0 && vestingSeconds <= settlement.MaxVestingSeconds))
	if valid {
		if settleAmount != "" {
			valid = settlement.ConfirmAmount(amount, settleAmount) == nil
		}
		confirm, cErr := confirmQuote(cmd, cc, q, "Invest in")
		if cErr != nil {
			return cErr
		}
		opts = append(opts, confirm)
	}

	return settle(cmd, cc, valid, func(ctx context.Context, rt *runtime, o ...settlement.SubmitOption) (settlement.Outcome, error) {
		return rt.orch.SubmitInvestment(ctx, ideaRef, price, vestingSeconds, investTokenized, o...)
	}, opts...)
}

func runRelease(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	ideaRef := args[0]
	_, err := settlement.ParseIdeaID(ideaRef)

	return settle(cmd, cc, err == nil, func(ctx context.Context, rt *runtime, o ...settlement.SubmitOption) (settlement.Outcome, error) {
		return rt.orch.SubmitRelease(ctx, ideaRef, o...)
	})
}
