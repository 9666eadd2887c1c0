package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// detailLabels names the shared detail keys in text output.
//
//nolint:gochecknoglobals // lookup table
var detailLabels = map[string]string{
	ilerr.DetailReason: "Reason",
	ilerr.DetailData:   "Revert data",
	ilerr.DetailTxHash: "Transaction",
}

// NewErrorDetail converts err for JSON output.
func NewErrorDetail(err error) ErrorDetail {
	var le *ilerr.IdeaLinkError
	if errors.As(err, &le) {
		return ErrorDetail{
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: le.Suggestion,
			ExitCode:   le.ExitCode,
		}
	}
	return ErrorDetail{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		ExitCode: ilerr.ExitGeneral,
	}
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	if format == FormatJSON {
		return WriteJSON(w, ErrorOutput{Error: NewErrorDetail(err)})
	}
	return formatErrorText(w, err)
}

// formatErrorText prints the message, then the reason and transaction on
// their own lines, then the remaining details sorted by key.
func formatErrorText(w io.Writer, err error) error {
	var sb strings.Builder

	var le *ilerr.IdeaLinkError
	if !errors.As(err, &le) {
		sb.WriteString(fmt.Sprintf("Error: %s\n", err.Error()))
		_, writeErr := io.WriteString(w, sb.String())
		return writeErr
	}

	sb.WriteString(fmt.Sprintf("Error: %s\n", le.Message))
	for _, key := range []string{ilerr.DetailReason, ilerr.DetailTxHash} {
		if v := le.Details[key]; v != "" {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", detailLabels[key], v))
		}
	}

	rest := make([]string, 0, len(le.Details))
	for k := range le.Details {
		if k != ilerr.DetailReason && k != ilerr.DetailTxHash {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	if len(rest) > 0 {
		sb.WriteString("\nDetails:\n")
		for _, k := range rest {
			label := k
			if l, ok := detailLabels[k]; ok {
				label = l
			}
			sb.WriteString(fmt.Sprintf("  %s: %s\n", label, le.Details[k]))
		}
	}

	if le.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", le.Suggestion))
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
