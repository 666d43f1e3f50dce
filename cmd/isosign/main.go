package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	paramsName string
	verbose    bool

	// Operation flags
	keyFilePath string
	sigFilePath string
	batched     bool
	compressed  bool
	workers     int
	iterations  int

	rootCmd = &cobra.Command{
		Use:   "isosign",
		Short: "CLI tool for the isogeny-based signature scheme",
		Long: `A CLI tool for generating keys, signing and verifying with the
supersingular-isogeny signature scheme, including its batched and
compressed execution modes.`,
	}

	keygenCmd = &cobra.Command{
		Use:   "keygen",
		Short: "Generate a long-term key pair",
		RunE:  runKeygen,
	}

	signCmd = &cobra.Command{
		Use:   "sign",
		Short: "Produce a signature with the stored key pair",
		RunE:  runSign,
	}

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify a stored signature",
		RunE:  runVerify,
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Benchmark sign and verify in the plain, batched and batched+compressed modes",
		RunE:  runBench,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&paramsName, "params", "p431", "parameter set (p431, p751)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	keygenCmd.Flags().StringVar(&keyFilePath, "key", "isosign.key", "key file to write")

	signCmd.Flags().StringVar(&keyFilePath, "key", "isosign.key", "key file")
	signCmd.Flags().StringVar(&sigFilePath, "sig", "isosign.sig", "signature file to write")
	signCmd.Flags().BoolVar(&batched, "batched", true, "batch field inversions across rounds")
	signCmd.Flags().BoolVar(&compressed, "compressed", false, "compress response points")
	signCmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = one per round)")

	verifyCmd.Flags().StringVar(&keyFilePath, "key", "isosign.key", "key file")
	verifyCmd.Flags().StringVar(&sigFilePath, "sig", "isosign.sig", "signature file")
	verifyCmd.Flags().BoolVar(&batched, "batched", true, "batch field inversions across rounds")
	verifyCmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = one per round)")

	benchCmd.Flags().IntVar(&iterations, "iters", 4, "iterations per mode")

	rootCmd.AddCommand(keygenCmd, signCmd, verifyCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
