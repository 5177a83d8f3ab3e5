package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smartspend/internal/snapshot"
)

func exportCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the owner's data to a JSON backup",
		Long: `Write every transaction, category and loan of the owner to a JSON backup.

The file defaults to ` + snapshot.BackupFileName + `. Use "-" to write to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := snapshot.BackupFileName
			if len(args) == 1 {
				path = args[0]
			}

			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			doc := snapshot.Export(s.store, &snapshot.Preferences{Currency: s.currency.Code})
			if path == "-" {
				return snapshot.Encode(cmd.OutOrStdout(), doc)
			}
			if err := snapshot.WriteFile(path, doc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Exported %d transactions, %d categories and %d loans to %s",
				len(doc.Transactions), len(doc.Categories), len(doc.Loans), path)))
			return nil
		},
	}
}

func importCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a JSON backup into the owner's data",
		Long: `Merge a JSON backup into the owner's data.

Records are matched by id: existing ones are replaced and new ones added.
Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				doc snapshot.Document
				err error
			)
			if args[0] == "-" {
				doc, err = snapshot.Decode(cmd.InOrStdin())
			} else {
				doc, err = snapshot.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := snapshot.Import(cmd.Context(), s.store, doc); err != nil {
				return err
			}
			if doc.Preferences != nil && doc.Preferences.Currency != "" && doc.Preferences.Currency != s.currency.Code {
				fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("Backup was made with currency %s, configured currency is %s",
					doc.Preferences.Currency, s.currency.Code)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Imported %d transactions, %d categories and %d loans for %s",
				len(doc.Transactions), len(doc.Categories), len(doc.Loans), s.owner)))
			return nil
		},
	}
}
