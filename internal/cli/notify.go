package cli

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/settlement"
)

// notifier prints settlement notifications for a person at a terminal.
// JSON output carries the same information in the command result, so in
// JSON mode notifications are only logged.
type notifier struct {
	w       io.Writer
	json    bool
	network chain.Network
	log     settlement.LogNotifier
}

func newNotifier(w io.Writer, cc *CommandContext, network chain.Network) *notifier {
	return &notifier{
		w:       w,
		json:    cc.Fmt.IsJSON(),
		network: network,
		log:     settlement.LogNotifier{Logger: cc.Log.Named("notify")},
	}
}

// Notify implements settlement.Notifier.
func (n *notifier) Notify(msg settlement.Notification) {
	n.log.Notify(msg)
	if n.json {
		return
	}

	// Failures are rendered by the command's error output.
	switch msg.Level {
	case settlement.LevelSuccess:
		output.Success(n.w, msg.Message)
	case settlement.LevelInfo:
		output.Info(n.w, msg.Message)
	}
	if url := n.network.TxURL(msg.TxHash); url != "" {
		out(n.w, "   %s\n", url)
	} else if msg.TxHash != "" {
		out(n.w, "   Transaction: %s\n", msg.TxHash)
	}
}

var _ settlement.Notifier = (*notifier)(nil)

// progress reports attempt state changes: always to the log, and to w in
// verbose text mode.
func progress(cc *CommandContext, w io.Writer) func(settlement.Attempt) {
	show := cc.Cfg.IsVerbose() && !cc.Fmt.IsJSON()
	return func(a settlement.Attempt) {
		cc.Log.Debug("attempt state",
			zap.String("attempt", a.ID),
			zap.String("operation", string(a.Operation)),
			zap.String("state", string(a.State)))
		if show {
			out(w, "   … %s\n", strings.ReplaceAll(string(a.State), "_", " "))
		}
	}
}
