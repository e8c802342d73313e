package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"finwise/internal/config"
	"finwise/internal/core"
	"finwise/internal/log"
	"finwise/internal/prefs"
	"finwise/internal/services"
	"finwise/internal/storage/sqlite"
)

const (
	envUsername = "FINWISE_USERNAME"
	envPassword = "FINWISE_PASSWORD"
)

var errNoCredentials = errors.New("username and password are required (flags or " + envUsername + "/" + envPassword + ")")

// app is the state shared by every command of one invocation.
type app struct {
	out       io.Writer
	prefsPath string
	dbFile    string
	username  string
	password  string
	verbose   bool

	prefs    prefs.Prefs
	store    *sqlite.Repository
	ledger   *services.LedgerService
	budgets  *services.BudgetService
	accounts *services.AccountService
}

func main() {
	if err := execute(os.Stdout, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// execute runs one invocation and releases the store whatever the outcome.
func execute(out io.Writer, args []string) error {
	root, a := newRootCmd(out)
	root.SetArgs(args)
	err := root.Execute()
	return errors.Join(err, a.close())
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{out: out}
	root := &cobra.Command{
		Use:          "finwise-cli",
		Short:        "Personal finance tracker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			p, err := prefs.Load(a.prefsPath)
			if err != nil {
				return err
			}
			a.prefs = p
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	addGlobalFlags(root.PersistentFlags(), a)

	root.AddCommand(
		newSignupCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newReportCmd(a),
		newBudgetCmd(a),
		newClearCmd(a),
		newExportCmd(a),
		newConfigCmd(a),
	)
	return root, a
}

func addGlobalFlags(fs *pflag.FlagSet, a *app) {
	fs.StringVar(&a.prefsPath, "config", prefs.DefaultFile, "Preferences file")
	fs.StringVar(&a.dbFile, "db", "", "SQLite database file (overrides DB_FILE from preferences)")
	fs.StringVarP(&a.username, "username", "u", "", "Username (default $"+envUsername+")")
	fs.StringVarP(&a.password, "password", "p", "", "Password (default $"+envPassword+")")
	fs.BoolVarP(&a.verbose, "verbose", "v", false, "Log service activity to stderr")
}

// open connects the store and builds the services. Commands that never touch
// the ledger skip it.
func (a *app) open() error {
	if a.store != nil {
		return nil
	}
	budget, err := config.LoadBudget()
	if err != nil {
		return err
	}
	path := a.dbFile
	if path == "" {
		path = a.prefs.DBFile
	}
	repo, err := sqlite.NewRepository(path)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    "pretty",
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})

	a.store = repo
	a.budgets = services.NewBudgetService(repo, core.Thresholds{NearRatio: budget.NearRatio}, logger)
	a.ledger = services.NewLedgerService(repo, a.budgets, logger)
	a.accounts = services.NewAccountService(repo, nil, logger)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// credentials prefers flags and falls back to the environment.
func (a *app) credentials() (string, string, error) {
	username, password := a.username, a.password
	if username == "" {
		username = os.Getenv(envUsername)
	}
	if password == "" {
		password = os.Getenv(envPassword)
	}
	if username == "" || password == "" {
		return "", "", errNoCredentials
	}
	return username, password, nil
}

// login opens the store and authenticates, returning the user id.
func (a *app) login(ctx context.Context) (int64, error) {
	username, password, err := a.credentials()
	if err != nil {
		return 0, err
	}
	if err := a.open(); err != nil {
		return 0, err
	}
	u, err := a.accounts.Authenticate(ctx, username, password)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
