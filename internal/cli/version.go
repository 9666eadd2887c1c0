package cli

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/mrz1836/idealink/internal/output"
)

const devVersionString = "dev"

// BuildInfo is stamped into the binary at release time.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // set once from main
var buildInfo BuildInfo

// SetBuildInfo records the version information reported by 'idealink version'.
func SetBuildInfo(version, commit, date string) {
	buildInfo = BuildInfo{Version: version, Commit: commit, Date: date}
}

// GetCurrentVersion returns the running version, or "dev" for local builds.
func GetCurrentVersion() string {
	if buildInfo.Version == "" {
		return devVersionString
	}
	return buildInfo.Version
}

func formatVersion(info BuildInfo) string {
	v, commit, date := info.Version, info.Commit, info.Date
	if v == "" {
		v = devVersionString
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the IdeaLink version, commit and build date.`,
	Example: `  idealink version
  idealink version -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		if GetCmdContext(cmd).Fmt.IsJSON() {
			return output.WriteJSON(w, struct {
				BuildInfo

				GoVersion string `json:"go_version"`
				Platform  string `json:"platform"`
			}{
				BuildInfo: BuildInfo{Version: GetCurrentVersion(), Commit: buildInfo.Commit, Date: buildInfo.Date},
				GoVersion: goruntime.Version(),
				Platform:  goruntime.GOOS + "/" + goruntime.GOARCH,
			})
		}
		outln(w, "idealink "+formatVersion(buildInfo))
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
