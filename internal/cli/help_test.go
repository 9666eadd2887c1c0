package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

// TestAllCommandsHaveShortDescription walks the entire command tree and
// verifies that every command has a non-empty Short description.
func TestAllCommandsHaveShortDescription(t *testing.T) {
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		t.Run(cmd.CommandPath(), func(t *testing.T) {
			assert.NotEmpty(t, cmd.Short, "%s: missing Short description", cmd.CommandPath())
		})
	})
}

// TestAllCommandsHaveLongDescription walks the entire command tree and
// verifies that every command has a non-empty Long description.
func TestAllCommandsHaveLongDescription(t *testing.T) {
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return
		}
		t.Run(cmd.CommandPath(), func(t *testing.T) {
			assert.NotEmpty(t, cmd.Long, "%s: missing Long description", cmd.CommandPath())
		})
	})
}

// TestLeafCommandsHaveExamples verifies that every leaf command has a
// non-empty Example field.
func TestLeafCommandsHaveExamples(t *testing.T) {
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		if cmd.RunE == nil && cmd.Run == nil {
			return
		}
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return
		}
		t.Run(cmd.CommandPath(), func(t *testing.T) {
			assert.NotEmpty(t, cmd.Example, "%s: leaf command missing Example field", cmd.CommandPath())
		})
	})
}

// TestNoEmbeddedExamplesInLong ensures examples live in the Example field.
func TestNoEmbeddedExamplesInLong(t *testing.T) {
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		t.Run(cmd.CommandPath(), func(t *testing.T) {
			assert.False(t,
				strings.Contains(cmd.Long, "\nExample:") || strings.Contains(cmd.Long, "\nExamples:"),
				"%s: Long contains embedded examples; move to Example field", cmd.CommandPath())
		})
	})
}

func TestEnrichParentLong(t *testing.T) {
	t.Parallel()
	parent := &cobra.Command{Use: "parent", Long: "Parent command."}
	parent.AddCommand(
		&cobra.Command{Use: "alpha", Short: "First child", Run: func(*cobra.Command, []string) {}},
		&cobra.Command{Use: "beta", Short: "Second child", Run: func(*cobra.Command, []string) {}},
	)

	enrichParentLong(parent)

	assert.True(t, strings.HasPrefix(parent.Long, "Parent command.\n\nSubcommands:\n"))
	assert.Contains(t, parent.Long, "alpha")
	assert.Contains(t, parent.Long, "Second child")
}

func TestEnrichParentLongSkipsLeaves(t *testing.T) {
	t.Parallel()
	leaf := &cobra.Command{Use: "leaf", Long: "Leaf."}
	enrichParentLong(leaf)
	assert.Equal(t, "Leaf.", leaf.Long)
}
