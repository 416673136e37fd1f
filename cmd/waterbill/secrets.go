package main

import (
	"errors"
	"fmt"

	"github.com/bluedeer/waterbill/internal/secret"
	"github.com/spf13/cobra"
)

// NewKeygenCmd creates the keygen command.
func NewKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ENCRYPTION_KEY",
		Long: `Keygen prints a random key for ENCRYPTION_KEY. Keep it out of version
control; values sealed with it cannot be opened without it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := secret.GenerateKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Add this line to your .env file:")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "ENCRYPTION_KEY=%s\n", key)
			return nil
		},
	}
}

// NewEncryptCmd creates the encrypt command.
func NewEncryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Seal a secret with ENCRYPTION_KEY",
		Long: `Encrypt seals a value such as BSA_PASSWORD with ENCRYPTION_KEY. Put the
printed enc:... value in .env; it is opened when the configuration loads.

Examples:
  waterbill encrypt 's3cret'
  waterbill encrypt --key "$KEY" 's3cret'`,
		Args: cobra.ExactArgs(1),
		RunE: runEncryptCmd,
	}

	cmd.Flags().String("key", "", "Key to seal with (default: ENCRYPTION_KEY)")

	return cmd
}

func runEncryptCmd(cmd *cobra.Command, args []string) error {
	key, err := cmd.Flags().GetString("key")
	if err != nil {
		return err
	}
	if key == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		key = cfg.EncryptionKey
	}
	if key == "" {
		return errors.New("no key: set ENCRYPTION_KEY or pass --key (create one with waterbill keygen)")
	}

	sealed, err := secret.Seal(key, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}
