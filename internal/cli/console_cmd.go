package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/session"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/tui"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

var (
	consoleContext    string
	consoleInstanceID string
)

// startConsole runs the full-screen console. Tests replace it.
var startConsole = tui.RunConsole

// consoleCmd implements "waypoint console <workflow>".
var consoleCmd = &cobra.Command{
	Use:   "console <workflow>",
	Short: "Drive a workflow instance from an interactive terminal console",
	Long: `Open a full-screen console on a new instance of <workflow>. The console
lists the states, the events that can fire right now, the visit history and
the engine's event log. Select an event and press enter to fire it.`,
	Example: `  waypoint console checkout
  waypoint console workflows/approval.json --context '{"approvals":1}'`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeWorkflowIDs,
	RunE:              runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleContext, "context", "", "JSON object (or @file) merged into the initial context")
	consoleCmd.Flags().StringVar(&consoleInstanceID, "instance-id", "", "Use this instance id instead of generating one")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	overrides, err := parseContextOverrides(consoleContext)
	if err != nil {
		return err
	}
	loaded, err := ws.resolve(ctx, args[0])
	if err != nil {
		return err
	}

	// Log output would tear the alt screen; the event pane shows engine
	// activity instead.
	events := make(chan workflow.Event, 256)
	eng := ws.engine(logging.Discard(), workflow.WithEventChannel(events))

	var opts []session.Option
	if consoleInstanceID != "" {
		opts = append(opts, session.WithStartOptions(workflow.WithInstanceID(consoleInstanceID)))
	}
	s, err := session.Open(ctx, eng, loaded.Definition, loaded.Document.InitialData(overrides), opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	return startConsole(ctx, tui.AppConfig{
		Version: buildinfo.GetInfo().Version,
		Session: s,
		Events:  events,
	})
}
