package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/praetorian-inc/aobscan/pkg/enum"
	"github.com/praetorian-inc/aobscan/pkg/matcher"
	"github.com/praetorian-inc/aobscan/pkg/pattern"
	"github.com/praetorian-inc/aobscan/pkg/section"
	"github.com/spf13/cobra"
)

var (
	findNotation string
	findMask     string
	findThreads  int
	findFirst    bool
	findSection  string
	findContext  int
	findFormat   string
	findColor    string
)

var findCmd = &cobra.Command{
	Use:   "find <pattern> <file>",
	Short: "Find one byte pattern in a file",
	Long: `Search a file for a single pattern and print a hex dump around each hit.

Examples:
  aobscan find "48 8B 05 ? ? ? ? 48 85 C0" ./game.exe
  aobscan find --notation hex "e8????????" ./lib.so --section .text
  aobscan find --notation code --mask "xxx????" '\x48\x8b\x05\x00\x00\x00\x00' ./bin`,
	Args: cobra.ExactArgs(2),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVar(&findNotation, "notation", "ida", "Pattern notation: ida, code, hex")
	findCmd.Flags().StringVar(&findMask, "mask", "", "Mask for code notation ('x' concrete, '?' wildcard)")
	findCmd.Flags().IntVar(&findThreads, "threads", 0, "Worker threads (0 = all CPUs)")
	findCmd.Flags().BoolVar(&findFirst, "first", false, "Stop at the first match")
	findCmd.Flags().StringVar(&findSection, "section", "", "Only search this object file section (e.g. .text, __text)")
	findCmd.Flags().IntVar(&findContext, "context", 16, "Bytes of hex dump before and after each match")
	findCmd.Flags().StringVar(&findFormat, "format", "human", "Output format: human, json")
	findCmd.Flags().StringVar(&findColor, "color", "auto", "Color output: auto, always, never")
}

// findResult is one hit printed by find.
type findResult struct {
	Offset        int    `json:"offset"`
	Section       string `json:"section,omitempty"`
	SectionOffset int    `json:"section_offset,omitempty"`
	Address       uint64 `json:"address,omitempty"`
	Arch          string `json:"arch,omitempty"`
	Bytes         string `json:"bytes"`
	Wildcards     string `json:"wildcards,omitempty"`
}

func runFind(cmd *cobra.Command, args []string) error {
	text, path := args[0], args[1]

	n, err := pattern.ParseNotation(findNotation, findMask)
	if err != nil {
		return err
	}
	p, err := pattern.Compile(text, n)
	if err != nil {
		return fmt.Errorf("compiling pattern: %w", err)
	}
	s, err := matcher.Build(p, threadConfig(findThreads))
	if err != nil {
		return err
	}

	data, release, err := enum.MapFile(path)
	if err != nil {
		return err
	}
	defer release()

	results, err := findMatches(s, data)
	if err != nil {
		return err
	}
	logger.Debug("search complete", "file", path, "size", len(data), "pattern", p.String(), "threads", s.Threads(), "matches", len(results))

	switch findFormat {
	case "json":
		if results == nil {
			results = []findResult{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "human":
		st, err := stylesFor(findColor)
		if err != nil {
			return err
		}
		outputFindHuman(cmd, st, p, path, data, results)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", findFormat)
	}
}

func findMatches(s *matcher.Scanner, data []byte) ([]findResult, error) {
	p := s.Pattern()
	newResult := func(off int) findResult {
		end := off + p.Len()
		return findResult{
			Offset:    off,
			Bytes:     hex.EncodeToString(data[off:end]),
			Wildcards: hex.EncodeToString(p.WildcardBytes(data, off)),
		}
	}

	if findSection != "" {
		var hits []section.Match
		var err error
		if findFirst {
			var (
				hit section.Match
				ok  bool
			)
			if hit, ok, err = section.FindFirst(s, data, findSection); ok {
				hits = []section.Match{hit}
			}
		} else {
			hits, err = section.FindAll(s, data, findSection)
		}
		if err != nil {
			if names, nerr := section.Names(data); nerr == nil {
				logger.Info("available sections", "names", names)
			}
			return nil, fmt.Errorf("section %s: %w", findSection, err)
		}
		results := make([]findResult, 0, len(hits))
		for _, h := range hits {
			r := newResult(h.RawOffset)
			r.Section = findSection
			r.SectionOffset = h.SectionOffset
			r.Address = h.Address()
			r.Arch = h.Arch
			results = append(results, r)
		}
		return results, nil
	}

	if findFirst {
		off, ok := s.FindFirst(data)
		if !ok {
			return nil, nil
		}
		return []findResult{newResult(off)}, nil
	}
	offsets := s.FindAll(data)
	results := make([]findResult, 0, len(offsets))
	for _, off := range offsets {
		results = append(results, newResult(off))
	}
	return results, nil
}

func outputFindHuman(cmd *cobra.Command, st *styles, p pattern.Pattern, path string, data []byte, results []findResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "Pattern '%s' not found in file '%s'\n", p, path)
		return
	}

	fmt.Fprintf(out, "Found %d match(es) for pattern '%s' in file '%s'\n\n", len(results), p, path)
	for i, r := range results {
		fmt.Fprintf(out, "%s\n", st.heading.Sprintf("Match #%d:", i+1))
		fmt.Fprintf(out, "Offset: 0x%08x (%d decimal)\n", r.Offset, r.Offset)
		if r.Section != "" {
			fmt.Fprintf(out, "Address: %s (%s+0x%x)", st.metadata.Sprintf("0x%x", r.Address), r.Section, r.SectionOffset)
			if r.Arch != "" {
				fmt.Fprintf(out, " [%s]", r.Arch)
			}
			fmt.Fprintln(out)
		}
		if r.Wildcards != "" {
			fmt.Fprintf(out, "Wildcards: %s\n", r.Wildcards)
		}

		ctx := max(findContext, 0)
		start := max(r.Offset-ctx, 0)
		end := min(r.Offset+p.Len()+ctx, len(data))
		writeHexDump(out, st, data[start:end], int64(start), r.Offset-start, r.Offset-start+p.Len())
		fmt.Fprintln(out)
	}
}

// threadConfig maps a --threads value to a matcher configuration.
func threadConfig(n int) matcher.ThreadConfig {
	if n <= 0 {
		return matcher.AllAvailableThreads()
	}
	return matcher.FixedThreads(n)
}
