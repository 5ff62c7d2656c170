// Command drulift checks Drupal plugin managers for a tagged cache backend
// and keeps the results in a queryable run history.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codewithboateng/drulift/internal/ir"
)

const (
	Version = "0.3.0"
	appName = "drulift"

	exitRuntime  = 1
	exitUsage    = 2
	exitFindings = 3
)

// exitError carries a process exit code through cobra's RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	// cobra reports argument errors as plain errors
	if strings.HasPrefix(err.Error(), "unknown command") || strings.HasPrefix(err.Error(), "accepts ") {
		return exitUsage
	}
	return exitRuntime
}

// globals shared by all subcommands
type globals struct {
	configPath string
	dbDriver   string
	dbDSN      string
	logFormat  string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Plugin manager cache backend analyzer for Drupal code",
		Long: `drulift parses PHP sources, finds plugin manager constructors and
reports those that do not set a cache backend with a literal key and
tags that contain that key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &exitError{code: exitUsage, err: fmt.Errorf("%s: %w", c.CommandPath(), err)}
	})

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to YAML config (optional)")
	pf.StringVar(&g.dbDriver, "db-driver", "", "Database driver: sqlite or postgres")
	pf.StringVar(&g.dbDSN, "db", "", "Database path (sqlite) or DSN (postgres)")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: json or text")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		analyzeCmd(g),
		reportCmd(g),
		diffCmd(g),
		serveCmd(g),
		rulesCmd(g),
		baselineCmd(g),
		userCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (IR %s)\n", appName, Version, ir.Version)
			},
		},
	)
	return cmd
}
