package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/idealink/internal/journal"
	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/settlement"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	historyIdea      string
	historyOperation string
	historyFailed    bool
	historyLimit     int
	historyClear     bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var historyCmd = &cobra.Command{
	Use:   "history [attempt-id]",
	Short: "List past settlement attempts",
	Long: `List settlement attempts recorded on this machine, newest first.

Every purchase, investment and release is recorded, including attempts that
failed validation or were rejected in the wallet. Pass an attempt id to see
its state transitions.`,
	Example: `  idealink history
  idealink history --idea idea7 --failed
  idealink history 2f1c0b9e-4c1e-4a8e-9a43-0c1d2e3f4a5b`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	historyCmd.GroupID = "settle"
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyIdea, "idea", "", "only attempts for this idea")
	historyCmd.Flags().StringVar(&historyOperation, "operation", "", "only this operation: purchase, invest, release")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only failed attempts")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of attempts to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the recorded history")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	store := journal.New(cc.Cfg.JournalDir())
	w := cmd.OutOrStdout()

	if historyClear {
		if err := store.Clear(); err != nil {
			return err
		}
		if !cc.Fmt.IsJSON() {
			output.Success(w, "History cleared")
		}
		return nil
	}

	if len(args) == 1 {
		a, ok, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return ilerr.WithDetails(ilerr.ErrNotFound, map[string]string{"attempt": args[0]})
		}
		return printAttempt(cmd, cc, a)
	}

	op := settlement.Operation(historyOperation)
	switch op {
	case "", settlement.OperationPurchase, settlement.OperationInvest, settlement.OperationRelease:
	default:
		return ilerr.WithSuggestion(
			ilerr.WithDetails(ilerr.ErrInvalidInput, map[string]string{"operation": historyOperation}),
			"Use purchase, invest or release")
	}

	attempts, err := store.List(journal.Filter{
		Operation: op,
		IdeaRef:   historyIdea,
		Failed:    historyFailed,
		Limit:     historyLimit,
	})
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		if attempts == nil {
			attempts = []settlement.Attempt{}
		}
		return output.WriteJSON(w, attempts)
	}
	if len(attempts) == 0 {
		output.Info(w, "No settlement attempts recorded")
		return nil
	}

	t := output.NewTable("WHEN", "OPERATION", "IDEA", "AMOUNT", "STATE", "RESULT")
	t.AlignRight(3)
	for _, a := range attempts {
		t.AddRow(
			a.CreatedAt.Local().Format(time.DateTime),
			string(a.Operation),
			a.IdeaRef,
			a.NativeAmount,
			string(a.State),
			attemptSummary(a),
		)
	}
	return t.Render(w)
}

// attemptSummary is the result of a confirmed attempt or the failure of a
// failed one.
func attemptSummary(a settlement.Attempt) string {
	if a.FailureKind == "" {
		return a.Result
	}
	if a.Reason != "" {
		return a.FailureKind + ": " + a.Reason
	}
	return a.FailureKind
}

func printAttempt(cmd *cobra.Command, cc *CommandContext, a settlement.Attempt) error {
	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, a)
	}

	t := output.NewTable("FIELD", "VALUE")
	t.SetNoHeader(true)
	t.AddRow("Attempt", a.ID)
	t.AddRow("Operation", string(a.Operation))
	t.AddRow("Idea", a.IdeaRef)
	if a.IdeaID != 0 {
		t.AddRow("Idea id", strconv.FormatUint(a.IdeaID, 10))
	}
	if a.Investor != "" {
		t.AddRow("Investor", a.Investor)
	}
	if a.NativeAmount != "" {
		t.AddRow("Amount", a.NativeAmount+" "+cc.Cfg.Network.NativeSymbol)
	}
	t.AddRow("State", string(a.State))
	if a.TxHash != "" {
		t.AddRow("Transaction", a.TxHash)
	}
	if s := attemptSummary(a); s != "" {
		t.AddRow("Result", s)
	}
	if err := t.Render(w); err != nil {
		return err
	}

	outln(w)
	transitions := output.NewTable("TIME", "STATE")
	for _, tr := range a.Transitions {
		transitions.AddRow(tr.At.Local().Format("15:04:05.000"), string(tr.State))
	}
	return transitions.Render(w)
}
