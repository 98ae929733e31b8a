// gripctl is the operator CLI of the GripID tracker.
//
// It works directly on the tracker database, so it can seed or repair a
// registry while the server is stopped, and it mints API tokens for staff
// devices.
//
// Usage:
//
//	gripctl [--config path] <command> [flags] [args]
//
// Commands:
//
//	import FILE                        register every row of an xlsx or csv file
//	export [--format xlsx|csv] FILE    write the registry to a spreadsheet
//	history SERIAL                     print the status history of a serial
//	reconcile [--repair]               find and fix registry/history drift
//	token --subject NAME --role ROLE   mint an API access token
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

// Version information - set at build time via ldflags
var version = "dev"

const defaultConfigPath = "configs/config.yaml"

// errUsage marks command line mistakes; main exits 2 for them.
var errUsage = errors.New("usage error")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// command is one gripctl subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *cliEnv, args []string) error
}

var commands = []command{
	{"import", "register every row of an xlsx or csv file", runImport},
	{"export", "write the registry to a spreadsheet", runExport},
	{"history", "print the status history of a serial", runHistory},
	{"reconcile", "find and fix registry/history drift", runReconcile},
	{"token", "mint an API access token", runToken},
}

// cliEnv carries the global flags and output streams to commands.
type cliEnv struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

// run parses the global flags and dispatches to a command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	env := &cliEnv{stdout: stdout, stderr: stderr}

	flagSet := pflag.NewFlagSet("gripctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&env.configPath, "config", "", "config file (default $GRIPID_CONFIG or "+defaultConfigPath+")")
	showVersion := flagSet.Bool("version", false, "print the version and exit")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *showVersion {
		fmt.Fprintf(stdout, "gripctl %s\n", version)
		return nil
	}
	if env.configPath == "" {
		env.configPath = getConfigPath()
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return fmt.Errorf("%w: command required", errUsage)
	}

	for _, cmd := range commands {
		if cmd.name == rest[0] {
			return cmd.run(ctx, env, rest[1:])
		}
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
}

func getConfigPath() string {
	if path := os.Getenv("GRIPID_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: gripctl [--config path] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}

// commandFlags returns a flag set for a subcommand that reports errors as
// usage errors.
func commandFlags(env *cliEnv, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("gripctl "+name, pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", errUsage, err)
	}
	return true, nil
}
