package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finwise/internal/budgetfile"
	"finwise/internal/core"
	"finwise/internal/export"
	"finwise/internal/prefs"
)

func newSignupCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, password, err := a.credentials()
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			if _, err := a.accounts.Register(cmd.Context(), username, password, email); err != nil {
				return err
			}
			a.printf("Account created successfully! Please login.\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (optional)")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <income|expense> <amount> <category> [description...]",
		Short: "Add a transaction",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			res, err := a.ledger.Record(cmd.Context(), userID, core.TransactionInput{
				Kind:        args[0],
				Amount:      amount,
				Category:    args[2],
				Description: strings.Join(args[3:], " "),
			})
			if err != nil {
				return err
			}
			a.printf("Transaction added successfully! %s\n", money(a.prefs.CurrencySymbol, res.Transaction.Amount))
			if res.Budget != nil {
				if line := budgetLine(*res.Budget, a.prefs.CurrencySymbol); line != "" {
					a.printf("%s\n", line)
				}
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := a.ledger.Rows(cmd.Context(), userID)
			if err != nil {
				return err
			}
			writeRows(a.out, rows, a.prefs)
			return nil
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show income, expenses and savings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			report, err := a.ledger.Report(cmd.Context(), userID)
			if err != nil {
				return err
			}
			writeReport(a.out, report, a.prefs.CurrencySymbol)
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transaction of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete transactions without --yes")
			}
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.ledger.Clear(cmd.Context(), userID)
			if err != nil {
				return err
			}
			a.printf("All transactions have been deleted (%d removed).\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export transactions to CSV (default " + export.DefaultFilename + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := a.ledger.Rows(cmd.Context(), userID)
			if err != nil {
				return err
			}
			path := export.DefaultFilename
			if len(args) == 1 {
				path = args[0]
			}
			opts := export.Options{CurrencySymbol: a.prefs.CurrencySymbol, DateFormat: a.prefs.DateFormat}
			if err := export.ToFile(path, rows, opts); err != nil {
				return err
			}
			a.printf("Report exported to %s\n", path)
			return nil
		},
	}
}

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage category budgets",
	}

	set := &cobra.Command{
		Use:   "set <category> <limit>",
		Short: "Set or replace the limit of a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			limit, err := core.ParseAmount(args[1])
			if err != nil {
				return &core.ValidationError{Field: "limit", Err: core.ErrInvalidLimit}
			}
			saved, err := a.budgets.Set(cmd.Context(), userID, args[0], limit)
			if err != nil {
				return err
			}
			a.printf("Budget set: %s - %s\n", saved.Category, money(a.prefs.CurrencySymbol, saved.Limit))
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <category>",
		Short: "Show the limit and current status of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			status, err := a.ledger.Status(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			writeStatus(a.out, status, a.prefs.CurrencySymbol)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			limits, err := a.budgets.List(cmd.Context(), userID)
			if err != nil {
				return err
			}
			writeBudgets(a.out, limits, a.prefs.CurrencySymbol)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load budgets from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limits, err := budgetfile.Load(args[0])
			if err != nil {
				return err
			}
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.budgets.Import(cmd.Context(), userID, limits)
			if err != nil {
				return err
			}
			a.printf("Imported %d budgets from %s\n", n, args[0])
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [file.yaml]",
		Short: "Write budgets as YAML (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			limits, err := a.budgets.List(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return budgetfile.Encode(a.out, limits)
			}
			if err := budgetfile.Save(args[0], limits); err != nil {
				return err
			}
			a.printf("Exported %d budgets to %s\n", len(limits), args[0])
			return nil
		},
	}

	cmd.AddCommand(set, get, list, importCmd, exportCmd)
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change preferences",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.printf("Currency symbol: %s\nDatabase file:   %s\nDate format:     %s\n",
				a.prefs.CurrencySymbol, a.prefs.DBFile, a.prefs.DateFormat)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "currency <symbol>",
		Short: "Set the currency symbol used in output",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := prefs.SetCurrency(a.prefsPath, args[0])
			if err != nil {
				return err
			}
			a.prefs = p
			a.printf("Currency symbol set to %s\n", p.CurrencySymbol)
			return nil
		},
	})
	return cmd
}
