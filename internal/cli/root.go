package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose bool
	flagQuiet   bool
	flagConfig  string
	flagDir     string
	flagNoColor bool
)

// exitError carries a specific process exit code. Commands return it after
// they have already reported the failure themselves.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// rootCmd is the base command for Waypoint.
var rootCmd = &cobra.Command{
	Use:   "waypoint",
	Short: "Declarative state-machine workflow executor",
	Long: `Waypoint runs workflows described as state machines in TOML or JSON
documents. States wait for input, move on automatically, or end the run;
transitions carry guards and actions that read and write a shared context.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: rootPreRun,
}

// rootPreRun applies environment fallbacks for the global flags, configures
// logging and color, and honours --dir.
func rootPreRun(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("verbose") && os.Getenv("WAYPOINT_VERBOSE") != "" {
		flagVerbose = true
	}
	if !flags.Changed("quiet") && os.Getenv("WAYPOINT_QUIET") != "" {
		flagQuiet = true
	}
	if !flags.Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("WAYPOINT_NO_COLOR") != "") {
		flagNoColor = true
	}

	logging.Setup(flagVerbose, flagQuiet, logging.JSONRequested(os.Getenv))

	if flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	if flagDir != "" {
		if err := os.Chdir(flagDir); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagDir, err)
		}
	}
	return nil
}

func registerGlobalFlags(cmd *cobra.Command, bind bool) {
	pf := cmd.PersistentFlags()
	if bind {
		pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output (env: WAYPOINT_VERBOSE)")
		pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all output except errors (env: WAYPOINT_QUIET)")
		pf.StringVar(&flagConfig, "config", "", "Path to waypoint.toml config file")
		pf.StringVar(&flagDir, "dir", "", "Override working directory")
		pf.BoolVar(&flagNoColor, "no-color", false, "Disable colored output (env: WAYPOINT_NO_COLOR, NO_COLOR)")
		return
	}
	pf.BoolP("verbose", "v", false, "Enable verbose (debug) output (env: WAYPOINT_VERBOSE)")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors (env: WAYPOINT_QUIET)")
	pf.String("config", "", "Path to waypoint.toml config file")
	pf.String("dir", "", "Override working directory")
	pf.Bool("no-color", false, "Disable colored output (env: WAYPOINT_NO_COLOR, NO_COLOR)")
}

func init() {
	registerGlobalFlags(rootCmd, true)
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

// NewRootCmd returns a fresh command tree for the completion and man page
// generators. Its persistent flags are unbound so the generators never
// touch the package-level flag values.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               rootCmd.Use,
		Short:             rootCmd.Short,
		Long:              rootCmd.Long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootCmd.PersistentPreRunE,
	}
	registerGlobalFlags(cmd, false)
	for _, child := range rootCmd.Commands() {
		cmd.AddCommand(child)
	}
	return cmd
}
