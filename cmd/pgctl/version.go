package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	rdebug "runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=...". When left at the defaults the
// values come from the module build info.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(os.Stdout, buildVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

// buildVersion merges the linker-set values with debug.ReadBuildInfo.
func buildVersion() versionInfo {
	v := versionInfo{Version: version, Commit: commit, Built: date}
	bi, ok := rdebug.ReadBuildInfo()
	if !ok {
		return v
	}
	v.GoVersion = bi.GoVersion
	if v.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if v.Commit == "none" {
				v.Commit = s.Value
			}
		case "vcs.time":
			if v.Built == "unknown" {
				v.Built = s.Value
			}
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	return v
}

func printVersion(w io.Writer, v versionInfo) {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	suffix := ""
	if v.Modified {
		suffix = " (modified)"
	}
	fmt.Fprintf(w, "pgctl %s%s\n", v.Version, suffix)
	fmt.Fprintf(w, "  commit: %s\n", v.Commit)
	fmt.Fprintf(w, "  built: %s\n", v.Built)
	if v.GoVersion != "" {
		fmt.Fprintf(w, "  go: %s\n", v.GoVersion)
	}
}
