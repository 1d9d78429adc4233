package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewCredentialCmd создаёт группу команд для управления credentials.
func NewCredentialCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage provider credentials",
	}

	cmd.AddCommand(
		newCredentialListCmd(clientFn, outputFn),
		newCredentialSetCmd(clientFn, outputFn),
		newCredentialUpdateCmd(clientFn, outputFn),
		newCredentialDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func credentialRow(c CredentialResponse) []string {
	return []string{c.ID, c.Key, c.MaskedValue, strconv.FormatBool(c.IsActive), c.UpdatedAt}
}

var credentialHeaders = []string{"ID", "KEY", "VALUE", "ACTIVE", "UPDATED"}

func newCredentialListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credentials of the current principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			credentials, err := client.ListCredentials()
			if err != nil {
				return err
			}

			rows := make([][]string, len(credentials))
			for i, c := range credentials {
				rows[i] = credentialRow(c)
			}

			out.Print(credentialHeaders, rows, credentials)
			return nil
		},
	}
}

func newCredentialSetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var key, value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a provider secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			cred, err := client.CreateCredential(key, value)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Credential stored: %s", cred.Key))
			out.Print(credentialHeaders, [][]string{credentialRow(*cred)}, cred)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Credential key, e.g. OPENROUTER_API_KEY (required)")
	cmd.Flags().StringVar(&value, "value", "", "Secret value (required)")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("value")

	return cmd
}

func newCredentialUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rotate a secret value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			cred, err := client.UpdateCredentialValue(args[0], value)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Credential updated: %s", cred.Key))
			out.Print(credentialHeaders, [][]string{credentialRow(*cred)}, cred)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "New secret value (required)")
	cmd.MarkFlagRequired("value")

	return cmd
}

func newCredentialDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteCredential(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Credential deleted: %s", args[0]))
			return nil
		},
	}
}
