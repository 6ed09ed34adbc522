package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/secrets"
)

var keygenFlags struct {
	bits int
}

var keygenCmd = &cobra.Command{
	Use:   "keygen [dir]",
	Short: "Generate the key pair that protects a run's sensitive values",
	Long: `Keygen writes a fresh RSA key pair into dir (default: the current
directory). The first job of every planned graph runs it in the job
directory; build jobs then encrypt sensitive values under the public
half, and only tasks holding the private half can recover them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeygen,
}

func init() {
	keygenCmd.Flags().IntVar(&keygenFlags.bits, "bits", secrets.DefaultKeyBits, "RSA modulus size")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	privPath, pubPath, err := secrets.GenerateKeyPair(dir, keygenFlags.bits)
	if err != nil {
		return err
	}
	ring, err := secrets.OpenKeyring(pubPath)
	if err != nil {
		return err
	}
	fp, err := ring.Fingerprint()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Private key: %s\n", privPath)
	fmt.Fprintf(out, "Public key:  %s\n", pubPath)
	fmt.Fprintf(out, "Fingerprint: %s\n", fp)
	return nil
}
