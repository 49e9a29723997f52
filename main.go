package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bookflow/library"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Commands carrying this annotation change library state and require the
// librarian passphrase when one is configured.
const annotMutates = "bookflow/mutates"

// Commands carrying this annotation do not open the database.
const annotNoDB = "bookflow/nodb"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type app struct {
	cfgPath string
	asJSON  bool

	cfg    *library.Config
	logger *slog.Logger
	mgr    *library.LibraryManager
}

func main() {
	a := &app{}
	root := a.rootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if a.mgr != nil {
		a.mgr.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookflow",
		Short:         "Library circulation: catalog, members, loans and reservations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if builtin(cmd) {
				return nil
			}
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "path to config.yaml")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		a.initCommand(),
		a.booksCommand(),
		a.membersCommand(),
		a.loansCommand(),
		a.reservationsCommand(),
		a.statsCommand(),
		a.hashCommand(),
	)
	return root
}

// builtin reports the help and completion commands cobra adds itself.
// They need neither config nor a database.
func builtin(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// setup loads .env and the config file, builds the logger, opens the
// library and checks the passphrase for mutating commands.
func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := library.LoadConfig(a.cfgPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger

	if cmd.Annotations[annotNoDB] == "true" {
		return nil
	}
	mgr, err := library.NewLibraryManager(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	a.mgr = mgr

	if cmd.Annotations[annotMutates] == "true" && mgr.RequiresPassphrase() {
		pass, err := readPassword("Librarian passphrase: ")
		if err != nil {
			return fmt.Errorf("%w: %w", library.ErrUnauthorized, err)
		}
		return mgr.Authenticate(pass)
	}
	return nil
}

// readPassword reads a passphrase with masking. Without a terminal it falls
// back to BOOKFLOW_PASSPHRASE so scripts can run mutating commands.
func readPassword(prompt string) (string, error) {
	if !stdinIsTerminal() {
		if v, ok := os.LookupEnv("BOOKFLOW_PASSPHRASE"); ok {
			return v, nil
		}
		return "", errors.New("stdin is not a terminal and BOOKFLOW_PASSPHRASE is unset")
	}
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytePassword)), nil
}

func stdinIsTerminal() bool { return term.IsTerminal(int(syscall.Stdin)) }

func mutating(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotMutates] = "true"
	return cmd
}

// emit prints v as JSON when --json is set, otherwise runs the table printer.
func (a *app) emit(v any, table func()) error {
	if !a.asJSON {
		table()
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, library.ErrBusy), errors.Is(err, library.ErrTimeout):
		return "The database is busy. Nothing was changed; try again."
	case errors.Is(err, library.ErrStorageUnavailable):
		return "Check database settings in the config file or BOOKFLOW_DB_* variables."
	case errors.Is(err, library.ErrUnauthorized):
		return "Mutating commands require the librarian passphrase."
	}
	return ""
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}
