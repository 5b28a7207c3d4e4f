package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/praetorian-inc/aobscan/pkg/signature"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = ""
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the aobscan version, its build and the built-in signature set",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "Output format: human, json")
}

type versionInfo struct {
	Version           string `json:"version"`
	Commit            string `json:"commit"`
	Modified          bool   `json:"modified,omitempty"`
	GoVersion         string `json:"go_version"`
	Platform          string `json:"platform"`
	CPUs              int    `json:"cpus"`
	BuiltinSignatures int    `json:"builtin_signatures"`
}

// buildVersionInfo fills in the commit from the embedded VCS stamp when it
// was not set at link time.
func buildVersionInfo(bi *debug.BuildInfo) versionInfo {
	info := versionInfo{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
	}
	if bi != nil {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if sigs, err := signature.NewLoader().LoadBuiltinSignatures(); err == nil {
		info.BuiltinSignatures = len(sigs)
	}
	return info
}

func runVersion(cmd *cobra.Command, args []string) error {
	bi, _ := debug.ReadBuildInfo()
	info := buildVersionInfo(bi)

	switch versionFormat {
	case "json":
		return outputJSON(cmd, info)
	case "human", "":
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "aobscan %s\n", info.Version)
		if info.Modified {
			fmt.Fprintf(out, "Commit: %s (modified)\n", info.Commit)
		} else {
			fmt.Fprintf(out, "Commit: %s\n", info.Commit)
		}
		fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
		fmt.Fprintf(out, "OS/Arch: %s (%d CPUs)\n", info.Platform, info.CPUs)
		fmt.Fprintf(out, "Built-in signatures: %d\n", info.BuiltinSignatures)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", versionFormat)
	}
}
