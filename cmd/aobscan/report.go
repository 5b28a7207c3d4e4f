package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/praetorian-inc/aobscan/pkg/datastore"
	"github.com/praetorian-inc/aobscan/pkg/store"
	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/spf13/cobra"
)

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
	reportBlobs     string
	reportContext   int
)

// reportMatchLimit is the number of matches shown per finding.
const reportMatchLimit = 3

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a report from scan results",
	Long:  "Read findings from a datastore and output a report",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "aobscan.db", "Path to datastore file")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json, sarif")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
	reportCmd.Flags().StringVar(&reportBlobs, "blobs", "", "Blob directory written by scan --store-blobs; shows a hex dump per match")
	reportCmd.Flags().IntVar(&reportContext, "context", 32, "Hex dump bytes before and after each match (with --blobs)")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportDatastore == store.MemoryPath {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if _, err := os.Stat(reportDatastore); err != nil {
		return fmt.Errorf("datastore not found: %s", reportDatastore)
	}

	s, err := store.New(store.Config{Path: reportDatastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}
	sigs, err := s.GetSignatures()
	if err != nil {
		return fmt.Errorf("retrieving signatures: %w", err)
	}

	switch reportFormat {
	case "json":
		if findings == nil {
			findings = []*types.Finding{}
		}
		return outputJSON(cmd, findings)
	case "sarif":
		matches, err := s.GetAllMatches()
		if err != nil {
			return fmt.Errorf("retrieving matches: %w", err)
		}
		return outputSARIF(cmd, s, sigs, matches)
	case "human":
		st, err := stylesFor(reportColor)
		if err != nil {
			return err
		}
		names := make(map[string]string, len(sigs))
		for _, sig := range sigs {
			names[sig.ID] = sig.Name
		}
		var blobs *datastore.BlobStore
		if reportBlobs != "" {
			blobs = &datastore.BlobStore{Root: reportBlobs}
		}
		return outputReportHuman(cmd.OutOrStdout(), st, s, blobs, findings, names)
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func outputReportHuman(out io.Writer, st *styles, s store.Store, blobs *datastore.BlobStore, findings []*types.Finding, names map[string]string) error {
	if len(findings) == 0 {
		fmt.Fprintf(out, "No findings.\n")
		return nil
	}

	total := len(findings)
	for i, f := range findings {
		fmt.Fprintf(out, "%s (%s %s)\n",
			st.findingHeading.Sprintf("Finding %d/%d", i+1, total),
			st.heading.Sprint("id"),
			st.id.Sprint(f.ID))

		name := f.SignatureID
		if n, ok := names[f.SignatureID]; ok && n != "" {
			name = n
		}
		fmt.Fprintf(out, "%s %s\n", st.heading.Sprint("Signature:"), st.sigName.Sprint(name))
		if len(f.Wildcards) > 0 {
			fmt.Fprintf(out, "%s %s\n", st.heading.Sprint("Wildcards:"), st.match.Sprint(hex.EncodeToString(f.Wildcards)))
		}

		shown := f.Matches
		if len(shown) > reportMatchLimit {
			fmt.Fprintf(out, "Showing %d/%d matches:\n", reportMatchLimit, len(shown))
			shown = shown[:reportMatchLimit]
		}

		for k, m := range shown {
			fmt.Fprintf(out, "\n    %s (%s %s)\n",
				st.heading.Sprintf("Match %d/%d", k+1, len(f.Matches)),
				st.heading.Sprint("id"),
				st.id.Sprint(m.StructuralID))

			provs, err := s.GetProvenance(m.BlobID)
			if err != nil {
				return fmt.Errorf("retrieving provenance: %w", err)
			}
			for _, prov := range provs {
				fmt.Fprintf(out, "    %s %s\n", st.heading.Sprint("File:"), st.metadata.Sprint(prov.Path()))
			}
			fmt.Fprintf(out, "    %s %s\n", st.heading.Sprint("Blob:"), st.metadata.Sprint(m.BlobID.Hex()))
			fmt.Fprintf(out, "    %s 0x%x-0x%x\n", st.heading.Sprint("Offset:"), m.Location.Offset.Start, m.Location.Offset.End)
			if m.Location.InSection() {
				fmt.Fprintf(out, "    %s %s (%s+0x%x)",
					st.heading.Sprint("Address:"),
					st.metadata.Sprintf("0x%x", m.Location.Address),
					m.Location.Section, m.Location.SectionOffset)
				if m.Location.Arch != "" {
					fmt.Fprintf(out, " [%s]", m.Location.Arch)
				}
				fmt.Fprintln(out)
			}

			if blobs != nil && blobs.Exists(m.BlobID) {
				start, end := int(m.Location.Offset.Start), int(m.Location.Offset.End)
				data, base, err := blobs.Context(m.BlobID, start, end, max(reportContext, 0))
				if err != nil {
					return fmt.Errorf("reading blob context: %w", err)
				}
				fmt.Fprintln(out)
				writeHexDump(out, st, data, int64(base), start-base, end-base)
				continue
			}

			if len(m.Snippet.Matching) > 0 {
				before, after := hex.EncodeToString(m.Snippet.Before), hex.EncodeToString(m.Snippet.After)
				if before != "" {
					before += " "
				}
				if after != "" {
					after = " " + after
				}
				fmt.Fprintf(out, "\n        %s%s%s\n", before, st.match.Sprint(hex.EncodeToString(m.Snippet.Matching)), after)
			}
		}

		fmt.Fprintf(out, "\n\n")
	}
	return nil
}
