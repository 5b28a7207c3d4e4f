package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/praetorian-inc/aobscan/pkg/signature"
	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/spf13/cobra"
)

var (
	signaturesPath   string
	signaturesFormat string
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "Manage signatures",
	Long:  "Commands for listing and validating AOB signatures",
}

var signaturesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available signatures",
	Long:  "Display all available signatures with their IDs, names and patterns",
	RunE:  runSignaturesList,
}

var signaturesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate signatures against their examples",
	Long: `Check that every signature compiles, matches each of its examples and
none of its negative examples, and that signature IDs are unique.`,
	RunE: runSignaturesValidate,
}

func init() {
	signaturesCmd.AddCommand(signaturesListCmd)
	signaturesCmd.AddCommand(signaturesValidateCmd)
	signaturesCmd.PersistentFlags().StringVar(&signaturesPath, "signatures", "", "Path to a custom signature file or directory")
	signaturesListCmd.Flags().StringVar(&signaturesFormat, "format", "table", "Output format: table, json")
}

func runSignaturesList(cmd *cobra.Command, args []string) error {
	sigs, err := loadSignatures(signaturesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading signatures: %w", err)
	}

	switch signaturesFormat {
	case "json":
		return outputJSON(cmd, sigs)
	case "table":
		return outputSignaturesTable(cmd, sigs)
	default:
		return fmt.Errorf("unknown output format: %s", signaturesFormat)
	}
}

func runSignaturesValidate(cmd *cobra.Command, args []string) error {
	sigs, err := loadSignatures(signaturesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading signatures: %w", err)
	}

	out := cmd.OutOrStdout()
	failed := 0
	seen := make(map[string]bool, len(sigs))
	for _, sig := range sigs {
		err := signature.Validate(sig)
		if err == nil && seen[sig.ID] {
			err = fmt.Errorf("duplicate signature ID: %s", sig.ID)
		}
		seen[sig.ID] = true

		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %s: %v\n", sig.ID, err)
			continue
		}
		logger.Debug("signature ok", "id", sig.ID, "examples", len(sig.Examples), "negative", len(sig.NegativeExamples))
		fmt.Fprintf(out, "ok    %s\n", sig.ID)
	}

	fmt.Fprintf(out, "\n%d signatures, %d failed\n", len(sigs), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d signatures failed validation", failed, len(sigs))
	}
	return nil
}

func outputSignaturesTable(cmd *cobra.Command, sigs []*types.Signature) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID\tName\tSection\tPattern\n")
	fmt.Fprintf(w, "--\t----\t-------\t-------\n")

	for _, sig := range sigs {
		text := sig.Pattern
		if p, err := sig.Compile(); err == nil {
			text = p.String()
		}
		sect := sig.Section
		if sect == "" {
			sect = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sig.ID, sig.Name, sect, strings.TrimSpace(text))
	}

	return nil
}
