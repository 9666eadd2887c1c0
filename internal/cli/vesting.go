package cli

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mrz1836/idealink/internal/contract"
	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/settlement"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	vestingInvestor string
	vestingWatch    bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var vestingCmd = &cobra.Command{
	Use:   "vesting",
	Short: "Inspect vesting positions",
	Long:  `Inspect reward-token vesting positions held in the settlement contract.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var vestingShowCmd = &cobra.Command{
	Use:   "show <idea>",
	Short: "Show how much of an investment has vested",
	Long: `Show the vesting schedule of an investment: total reward tokens, how much
has vested and been released, and what can be released now.

Vesting is linear from the investment time over the vesting period. With
--watch the figures are refreshed every settlement.poll_interval_seconds.`,
	Example: `  idealink vesting show idea3
  idealink vesting show idea3 --investor 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed
  idealink vesting show idea3 --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runVestingShow,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	vestingCmd.GroupID = "settle"
	rootCmd.AddCommand(vestingCmd)
	vestingCmd.AddCommand(vestingShowCmd)

	vestingShowCmd.Flags().StringVar(&vestingInvestor, "investor", "", "investor address (default: connected account)")
	vestingShowCmd.Flags().BoolVar(&vestingWatch, "watch", false, "keep refreshing until interrupted")
}

type vestingView struct {
	contract.InvestmentRecord

	Idea         string          `json:"idea"`
	VestedNow    contract.Amount `json:"vested_now"`
	Releasable   contract.Amount `json:"releasable"`
	PercentVest  string          `json:"percent_vested"`
	VestingEnd   time.Time       `json:"vesting_end"`
	VestingLabel string          `json:"vesting_period"`
	At           time.Time       `json:"at"`
}

func runVestingShow(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	ideaRef := args[0]
	ideaID, err := settlement.ParseIdeaID(ideaRef)
	if err != nil {
		return err
	}

	connectCtx, cancel := requestContext(cmd, cc)
	defer cancel()

	rt, err := newRuntime(connectCtx, cc, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.connect(connectCtx, cc, cmd.ErrOrStderr()); err != nil {
		return err
	}

	view, err := loadVesting(connectCtx, cc, rt, ideaRef, ideaID)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if err := printVesting(w, cc, view, true); err != nil {
		return err
	}
	if !vestingWatch || !view.Exists() {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(cc.Cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		reqCtx, reqCancel := requestContext(cmd, cc)
		view, err = loadVesting(reqCtx, cc, rt, ideaRef, ideaID)
		reqCancel()
		if err != nil {
			return err
		}
		if err := printVesting(w, cc, view, false); err != nil {
			return err
		}
		if view.VestedNow.Wei().Cmp(view.TotalVestedAmount.Wei()) >= 0 {
			return nil
		}
	}
}

// loadVesting reads the schedule and the contract's releasable amount and
// evaluates the linear model at the current time.
func loadVesting(ctx context.Context, cc *CommandContext, rt *runtime, ideaRef string, ideaID uint64) (vestingView, error) {
	record, err := rt.gateway.VestingSchedule(ctx, ideaID, vestingInvestor)
	if err != nil {
		return vestingView{}, err
	}

	now := cc.Now().UTC()
	view := vestingView{
		InvestmentRecord: record,
		Idea:             ideaRef,
		VestedNow:        record.VestedAt(now),
		Releasable:       record.ReleasableAt(now),
		VestingEnd:       record.VestingEnd(),
		VestingLabel:     settlement.FormatDuration(record.VestingDuration),
		At:               now,
		PercentVest:      "0.00",
	}
	if !record.Exists() {
		return view, nil
	}

	// The contract's figure wins over the local model when they differ.
	if releasable, err := rt.gateway.ReleasableAmount(ctx, ideaID, vestingInvestor); err == nil {
		view.Releasable = releasable
	}
	view.PercentVest = view.VestedNow.Decimal().
		Div(record.TotalVestedAmount.Decimal()).
		Mul(decimal.NewFromInt(100)).
		StringFixed(2)
	return view, nil
}

func printVesting(w io.Writer, cc *CommandContext, v vestingView, full bool) error {
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, v)
	}
	if !v.Exists() {
		output.Infof(w, "No investment in %s for %s", v.Idea, v.Investor)
		return nil
	}
	if !full {
		out(w, "%s  vested %s of %s (%s%%), releasable %s\n",
			v.At.Format(time.TimeOnly), v.VestedNow, v.TotalVestedAmount, v.PercentVest, v.Releasable)
		return nil
	}

	t := output.NewTable("FIELD", "VALUE")
	t.SetNoHeader(true)
	t.AddRow("Idea", v.Idea)
	t.AddRow("Investor", v.Investor)
	t.AddRow("Total reward tokens", v.TotalVestedAmount.String())
	t.AddRow("Vested", v.VestedNow.String()+" ("+v.PercentVest+"%)")
	t.AddRow("Released", v.ReleasedAmount.String())
	t.AddRow("Releasable now", v.Releasable.String())
	t.AddRow("Vesting period", v.VestingLabel)
	t.AddRow("Started", v.VestingStart.Format(time.RFC3339))
	t.AddRow("Fully vested", v.VestingEnd.Format(time.RFC3339))
	return t.Render(w)
}
