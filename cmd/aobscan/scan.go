package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/praetorian-inc/aobscan/pkg/datastore"
	"github.com/praetorian-inc/aobscan/pkg/enum"
	"github.com/praetorian-inc/aobscan/pkg/sarif"
	"github.com/praetorian-inc/aobscan/pkg/scanner"
	"github.com/praetorian-inc/aobscan/pkg/signature"
	"github.com/praetorian-inc/aobscan/pkg/store"
	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/spf13/cobra"
)

var (
	scanSignaturesPath    string
	scanSignaturesInclude string
	scanSignaturesExclude string
	scanCategories        string
	scanOutputPath        string
	scanOutputFormat      string
	scanThreads           int
	scanMaxFileSize       int64
	scanIncludeHidden     bool
	scanExtractArchives   bool
	scanArchivePassword   string
	scanIncremental       bool
	scanMaxMatches        int
	scanContextBytes      int
	scanStoreBlobs        string
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>...",
	Short: "Scan targets with signatures",
	Long:  "Scan files or directories, including sample archives, with the built-in or custom signatures",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanSignaturesPath, "signatures", "", "Path to a custom signature file or directory")
	scanCmd.Flags().StringVar(&scanSignaturesInclude, "signatures-include", "", "Include signatures matching regex pattern (comma-separated)")
	scanCmd.Flags().StringVar(&scanSignaturesExclude, "signatures-exclude", "", "Exclude signatures matching regex pattern (comma-separated)")
	scanCmd.Flags().StringVar(&scanCategories, "categories", "", "Only use signatures tagged with one of these categories (comma-separated)")
	scanCmd.Flags().StringVar(&scanOutputPath, "output", "aobscan.db", "Output database path (:memory: for none)")
	scanCmd.Flags().StringVar(&scanOutputFormat, "format", "human", "Output format: json, sarif, human")
	scanCmd.Flags().IntVar(&scanThreads, "threads", 1, "Worker threads per signature scan (0 = all CPUs)")
	scanCmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 256*1024*1024, "Maximum file or archive member size to scan (bytes)")
	scanCmd.Flags().BoolVar(&scanIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	scanCmd.Flags().BoolVar(&scanExtractArchives, "extract-archives", false, "Scan the members of .zip and .7z archives")
	scanCmd.Flags().StringVar(&scanArchivePassword, "archive-password", enum.DefaultArchivePassword, "Password for encrypted 7z archives")
	scanCmd.Flags().BoolVar(&scanIncremental, "incremental", false, "Skip already-scanned blobs")
	scanCmd.Flags().IntVar(&scanMaxMatches, "max-matches", 0, "Maximum matches per signature per blob (0 = no limit)")
	scanCmd.Flags().IntVar(&scanContextBytes, "context", scanner.DefaultContextBytes, "Snippet bytes kept before and after each match")
	scanCmd.Flags().StringVar(&scanStoreBlobs, "store-blobs", "", "Directory to keep copies of blobs with matches (for report --blobs)")
}

func runScan(cmd *cobra.Command, args []string) error {
	for _, target := range args {
		if _, err := os.Stat(target); err != nil {
			return fmt.Errorf("target does not exist: %s", target)
		}
	}

	sigs, err := loadSignatures(scanSignaturesPath, scanSignaturesInclude, scanSignaturesExclude)
	if err != nil {
		return fmt.Errorf("loading signatures: %w", err)
	}
	if scanCategories != "" {
		sigs = signature.ByCategory(sigs, strings.Split(scanCategories, ",")...)
	}
	if len(sigs) == 0 {
		return fmt.Errorf("no signatures selected")
	}

	var blobs *datastore.BlobStore
	if scanStoreBlobs != "" {
		if blobs, err = datastore.Open(scanStoreBlobs); err != nil {
			return err
		}
	}

	s, err := store.New(store.Config{Path: scanOutputPath})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}

	core, err := scanner.NewCore(sigs, scanner.Config{
		Threads:                threadConfig(scanThreads),
		Store:                  s,
		MaxMatchesPerSignature: scanMaxMatches,
		ContextBytes:           scanContextBytes,
		Logger:                 logger,
	})
	if err != nil {
		s.Close()
		return fmt.Errorf("creating scanner: %w", err)
	}
	defer core.Close()

	enumerators := make([]enum.Enumerator, 0, len(args))
	for _, target := range args {
		config := enum.DefaultConfig(target)
		config.IncludeHidden = scanIncludeHidden
		config.MaxFileSize = scanMaxFileSize
		config.ExtractArchives = scanExtractArchives
		config.ArchivePassword = scanArchivePassword
		config.Logger = logger
		enumerators = append(enumerators, enum.NewFilesystemEnumerator(config))
	}

	var blobCount, matchCount, skippedCount atomic.Int64

	// Identical content under another path is scanned once; the other
	// paths are still recorded.
	enumerator := enum.NewCombinedEnumerator(enumerators...).OnDuplicate(func(blobID types.BlobID, prov types.Provenance) error {
		skippedCount.Add(1)
		return s.AddProvenance(blobID, prov)
	})

	err = enumerator.Enumerate(context.Background(), func(content []byte, blobID types.BlobID, prov types.Provenance) error {
		if scanIncremental {
			exists, err := s.BlobExists(blobID)
			if err != nil {
				return fmt.Errorf("checking blob: %w", err)
			}
			if exists {
				skippedCount.Add(1)
				// Record the new location of known content.
				return s.AddProvenance(blobID, prov)
			}
		}

		matches, err := core.ScanBlob(content, blobID, prov)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", prov.Path(), err)
		}
		blobCount.Add(1)
		matchCount.Add(int64(len(matches)))

		if blobs != nil && len(matches) > 0 {
			if _, err := blobs.Store(content); err != nil {
				return fmt.Errorf("storing blob %s: %w", blobID.Hex(), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}

	// Summary goes to stderr for json/sarif to keep stdout machine-readable.
	summary := cmd.OutOrStdout()
	if scanOutputFormat == "json" || scanOutputFormat == "sarif" {
		summary = cmd.ErrOrStderr()
	}
	if scanIncremental {
		fmt.Fprintf(summary, "Scan complete: %d blobs, %d matches, %d findings (%d blobs skipped)\n",
			blobCount.Load(), matchCount.Load(), len(findings), skippedCount.Load())
	} else {
		fmt.Fprintf(summary, "Scan complete: %d blobs, %d matches, %d findings\n",
			blobCount.Load(), matchCount.Load(), len(findings))
	}
	if scanOutputPath != store.MemoryPath {
		fmt.Fprintf(summary, "Results stored in: %s\n", scanOutputPath)
	}

	switch scanOutputFormat {
	case "json":
		matches, err := s.GetAllMatches()
		if err != nil {
			return fmt.Errorf("retrieving matches: %w", err)
		}
		return outputJSON(cmd, matches)
	case "sarif":
		matches, err := s.GetAllMatches()
		if err != nil {
			return fmt.Errorf("retrieving matches: %w", err)
		}
		return outputSARIF(cmd, s, sigs, matches)
	case "human":
		return outputFindings(cmd, findings)
	default:
		return fmt.Errorf("unknown output format: %s", scanOutputFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func loadSignatures(path, include, exclude string) ([]*types.Signature, error) {
	loader := signature.NewLoader()

	var (
		sigs []*types.Signature
		err  error
	)
	if path != "" {
		sigs, err = loader.LoadPath(path)
	} else {
		sigs, err = loader.LoadBuiltinSignatures()
	}
	if err != nil {
		return nil, err
	}

	if include != "" || exclude != "" {
		sigs, err = signature.Filter(sigs, signature.FilterConfig{
			Include: signature.ParsePatterns(include),
			Exclude: signature.ParsePatterns(exclude),
		})
		if err != nil {
			return nil, fmt.Errorf("filtering signatures: %w", err)
		}
	}
	return sigs, nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputFindings(cmd *cobra.Command, findings []*types.Finding) error {
	out := cmd.OutOrStdout()
	if len(findings) == 0 {
		fmt.Fprintf(out, "\nNo findings.\n")
		return nil
	}

	fmt.Fprintf(out, "\nFindings:\n")
	for i, f := range findings {
		fmt.Fprintf(out, "%d. Signature: %s (%d matches)\n", i+1, f.SignatureID, len(f.Matches))
	}
	return nil
}

// outputSARIF writes matches in SARIF 2.1.0 format.
func outputSARIF(cmd *cobra.Command, s store.Store, sigs []*types.Signature, matches []*types.Match) error {
	report := sarif.NewReport()
	for _, sig := range sigs {
		report.AddRule(sig)
	}

	paths := make(map[types.BlobID]string)
	for _, match := range matches {
		path, ok := paths[match.BlobID]
		if !ok {
			path = blobPath(s, match.BlobID)
			paths[match.BlobID] = path
		}
		report.AddResult(match, path)
	}

	jsonBytes, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing SARIF: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(jsonBytes); err != nil {
		return fmt.Errorf("writing SARIF output: %w", err)
	}
	return nil
}

// blobPath returns the first recorded location of a blob, or its ID.
func blobPath(s store.Store, id types.BlobID) string {
	provs, err := s.GetProvenance(id)
	if err != nil || len(provs) == 0 {
		return id.Hex()
	}
	return provs[0].Path()
}
