package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/gripid/tracker-core/internal/auth"
	"github.com/gripid/tracker-core/internal/infrastructure/config"
	"github.com/gripid/tracker-core/internal/sheet"
	"github.com/gripid/tracker-core/internal/tracker"
)

// runImport registers the rows of a spreadsheet and prints the row log.
func runImport(ctx context.Context, env *cliEnv, args []string) error {
	fs := commandFlags(env, "import")
	formatFlag := fs.String("format", "", "file format, xlsx or csv (default from the file extension)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: import takes exactly one FILE", errUsage)
	}
	path := fs.Arg(0)

	format, err := fileFormat(*formatFlag, path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := sheet.Read(f, format)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	svc, closeDB, err := openTracker(ctx, env)
	if err != nil {
		return err
	}
	defer closeDB()

	report, importErr := svc.BulkImport(ctx, filepath.Base(path), rows)

	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSN\tSTATUS\tREASON")
	for _, l := range report.Logs {
		reason := l.Reason
		if l.Warning != "" {
			reason += " (" + l.Warning + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.Row, l.Serial, l.Status, reason)
	}
	tw.Flush() //nolint:errcheck // Terminal output
	fmt.Fprintf(env.stdout, "added %d, skipped %d, failed %d\n", report.Added, report.Skipped, report.Failed)
	if report.AuditGaps > 0 {
		fmt.Fprintf(env.stdout, "warning: %d devices added without history entries, run gripctl reconcile --repair\n", report.AuditGaps)
	}

	if importErr != nil {
		return fmt.Errorf("import stopped after %d rows: %w", len(report.Logs), importErr)
	}
	return nil
}

// runExport writes every device to a spreadsheet file.
func runExport(ctx context.Context, env *cliEnv, args []string) error {
	fs := commandFlags(env, "export")
	formatFlag := fs.String("format", "", "file format, xlsx or csv (default from the file extension)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: export takes exactly one FILE", errUsage)
	}
	path := fs.Arg(0)

	format, err := fileFormat(*formatFlag, path)
	if err != nil {
		return err
	}

	svc, closeDB, err := openTracker(ctx, env)
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := svc.ExportAll(ctx)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	var buf bytes.Buffer
	if err := sheet.Write(&buf, format, records); err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(env.stdout, "exported %d devices to %s\n", len(records), path)
	return nil
}

// runHistory prints the status history recorded under a serial.
func runHistory(ctx context.Context, env *cliEnv, args []string) error {
	fs := commandFlags(env, "history")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: history takes exactly one SERIAL", errUsage)
	}

	svc, closeDB, err := openTracker(ctx, env)
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := svc.GetHistory(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintf(env.stdout, "no history for %s\n", fs.Arg(0))
		return nil
	}

	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSN\tSTATUS\tNOTE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.SerialSnapshot, e.Status, e.Note)
	}
	return tw.Flush()
}

// runReconcile removes orphaned history and reports, or repairs, devices
// whose status is not backed by their newest history entry.
func runReconcile(ctx context.Context, env *cliEnv, args []string) error {
	fs := commandFlags(env, "reconcile")
	repair := fs.Bool("repair", false, "append a corrective history entry for each drifted device")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: reconcile takes no arguments", errUsage)
	}

	svc, closeDB, err := openTracker(ctx, env)
	if err != nil {
		return err
	}
	defer closeDB()

	report, err := svc.Reconcile(ctx, *repair)
	if err != nil {
		return fmt.Errorf("reconciling: %w", err)
	}
	printReconcile(env, report)
	return nil
}

func printReconcile(env *cliEnv, report *tracker.ReconcileReport) {
	fmt.Fprintf(env.stdout, "orphaned history removed: %d entries of %d devices\n",
		report.OrphansRemoved, len(report.OrphanDevices))
	if len(report.Gaps) == 0 {
		fmt.Fprintln(env.stdout, "no status drift found")
		return
	}

	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SN\tCURRENT\tLATEST ENTRY\tREPAIRED")
	for _, g := range report.Gaps {
		latest := g.LatestStatus
		if latest == "" {
			latest = "(none)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", g.Serial, g.CurrentStatus, latest, g.Repaired)
	}
	tw.Flush() //nolint:errcheck // Terminal output
}

// runToken mints a bearer token signed with the configured JWT secret.
func runToken(_ context.Context, env *cliEnv, args []string) error {
	fs := commandFlags(env, "token")
	subject := fs.String("subject", "", "token subject, e.g. the staff member or scanner name")
	role := fs.String("role", string(auth.RoleOperator), "role: viewer, operator or admin")
	ttlMinutes := fs.Int("ttl", 0, "lifetime in minutes (default security.jwt.access_token_ttl)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("%w: --subject is required", errUsage)
	}
	if !auth.IsValidRole(auth.Role(*role)) {
		return fmt.Errorf("%w: %w: %q", errUsage, auth.ErrInvalidRole, *role)
	}

	cfg, err := config.Load(env.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.AuthEnabled() {
		return fmt.Errorf("security.jwt.secret is not set, the API accepts requests without tokens")
	}

	ttl := cfg.GetAccessTokenTTL()
	if *ttlMinutes > 0 {
		ttl = time.Duration(*ttlMinutes) * time.Minute
	}

	token, err := auth.GenerateAccessToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(env.stdout, token)
	return nil
}

func fileFormat(flagValue, path string) (sheet.Format, error) {
	if flagValue != "" {
		return sheet.ParseFormat(flagValue)
	}
	return sheet.FormatOf(path)
}
