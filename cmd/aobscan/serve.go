package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/aobscan/pkg/scanner"
	"github.com/praetorian-inc/aobscan/pkg/serve"
	"github.com/spf13/cobra"
)

var (
	serveSignaturesPath string
	serveThreads        int
	serveMaxMatches     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming scan server",
	Long: `Run aobscan as a long-lived streaming server that accepts scan requests
via stdin and writes results to stdout using NDJSON.

The process loads signatures once at startup and processes requests until
stdin closes, a close request arrives or SIGTERM is received.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSignaturesPath, "signatures", "", "Path to a custom signature file or directory")
	serveCmd.Flags().IntVar(&serveThreads, "threads", 1, "Worker threads per signature scan (0 = all CPUs)")
	serveCmd.Flags().IntVar(&serveMaxMatches, "max-matches", 0, "Maximum matches per signature per request (0 = no limit)")
}

func runServe(cmd *cobra.Command, args []string) error {
	sigs, err := loadSignatures(serveSignaturesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading signatures: %w", err)
	}

	config := scanner.DefaultConfig()
	config.Threads = threadConfig(serveThreads)
	config.MaxMatchesPerSignature = serveMaxMatches
	config.Logger = logger
	core, err := scanner.NewCore(sigs, config)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := serve.NewServer(core, cmd.InOrStdin(), cmd.OutOrStdout(), serve.WithLogger(logger))
	return srv.Run(ctx)
}
