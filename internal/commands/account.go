package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger-import/internal/model"
)

func newAccountCommand(configPath *string) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage ledger accounts",
	}
	accountCmd.AddCommand(newAccountAddCommand(configPath), newAccountListCommand(configPath))
	return accountCmd
}

func newAccountAddCommand(configPath *string) *cobra.Command {
	var a model.Account
	var sign string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Sign = model.SignConvention(sign)
			if !a.Sign.Valid() {
				return fmt.Errorf("invalid --sign %q: want %s or %s", sign, model.SignInflowPositive, model.SignInflowNegative)
			}

			e, ctx, err := openEnv(cmd, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.UpsertAccount(ctx, a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved account %s\n", a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&a.ID, "id", "", "account id (required)")
	cmd.Flags().StringVar(&a.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&a.ExternalID, "external-id", "", "institution account number (OFX ACCTID) for auto-linking")
	cmd.Flags().StringVar(&a.Currency, "currency", "USD", "account currency")
	cmd.Flags().StringVar(&sign, "sign", string(model.SignInflowPositive), "ledger sign convention")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newAccountListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			accts, err := e.store.ListAccounts(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEXTERNAL ID\tCURRENCY\tSIGN")
			for _, a := range accts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.ExternalID, a.Currency, a.Sign)
			}
			return tw.Flush()
		},
	}
}
