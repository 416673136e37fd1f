package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bluedeer/waterbill/internal/notify"
	"github.com/bluedeer/waterbill/internal/portal"
	"github.com/spf13/cobra"
)

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <account-or-address>",
		Short: "Look up one bill on the portal",
		Long: `Lookup searches the portal for one account number or street address
and prints the bill. Nothing is stored.

By default the address search is tried first and the account search is
the fallback.

Examples:
  waterbill lookup 302913026 --by account
  waterbill lookup "3040 Alvina" --json`,
		Args: cobra.ExactArgs(1),
		RunE: runLookupCmd,
	}

	cmd.Flags().String("by", "auto", "Search kind: auto, account or address")
	cmd.Flags().Bool("json", false, "Print the bill as JSON")

	return cmd
}

func runLookupCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cmd, false)

	by, err := cmd.Flags().GetString("by")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	client, err := newPortalClient(cfg, logger)
	if err != nil {
		return err
	}

	var bill *portal.Bill
	switch by {
	case "auto":
		bill, err = client.Lookup(ctx, args[0])
	case string(portal.SearchAccount), string(portal.SearchAddress):
		bill, err = client.Search(ctx, portal.SearchKind(by), args[0])
	default:
		return fmt.Errorf("invalid --by %q: must be auto, account or address", by)
	}
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(bill)
	}
	writeBill(cmd.OutOrStdout(), bill)
	return nil
}

func writeBill(w io.Writer, b *portal.Bill) {
	fmt.Fprintf(w, "Account:    %s\n", b.AccountNumber)
	fmt.Fprintf(w, "Address:    %s\n", b.Address)
	if b.City != "" {
		fmt.Fprintf(w, "            %s, %s %s\n", b.City, b.State, b.ZipCode)
	}
	if b.OwnerName != "" {
		fmt.Fprintf(w, "Owner:      %s\n", b.OwnerName)
	}
	fmt.Fprintf(w, "Amount due: %s\n", notify.Money(b.AmountDue))
	fmt.Fprintf(w, "Due date:   %s\n", notify.Date(b.DueDate))
	for _, c := range b.Charges {
		fmt.Fprintf(w, "  %-24s %s\n", c.Name, notify.Money(c.Amount))
	}
}
