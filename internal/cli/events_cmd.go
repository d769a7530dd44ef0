package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

var (
	eventsReplay  []string
	eventsContext string
	eventsJSON    bool
)

// eventsCmd implements "waypoint events <workflow>".
var eventsCmd = &cobra.Command{
	Use:   "events <workflow>",
	Short: "List the events that can fire next",
	Long: `Start an instance of <workflow>, replay each --event, and print the
events that would cause a transition from where the instance ends up. Guards
are evaluated against the replayed context; nothing is dispatched for the
listed events.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeWorkflowIDs,
	RunE:              runEvents,
}

func init() {
	eventsCmd.Flags().StringArrayVarP(&eventsReplay, "event", "e", nil, "Event to replay first (repeatable, in order)")
	eventsCmd.Flags().StringVar(&eventsContext, "context", "", "JSON object (or @file) merged into the initial context")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(eventsCmd)
}

// eventsReport is the JSON shape of `waypoint events --json`.
type eventsReport struct {
	Workflow  string          `json:"workflow"`
	State     string          `json:"state"`
	Status    workflow.Status `json:"status"`
	Available []string        `json:"available"`
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	overrides, err := parseContextOverrides(eventsContext)
	if err != nil {
		return err
	}
	loaded, err := ws.resolve(ctx, args[0])
	if err != nil {
		return err
	}

	eng := ws.engine(logging.New("engine"))
	def := loaded.Definition
	inst, err := eng.StartAndStabilize(ctx, def, loaded.Document.InitialData(overrides))
	if err != nil {
		return err
	}
	for _, event := range eventsReplay {
		inst = eng.Dispatch(ctx, def, inst, event).Instance
	}

	available, err := eng.AvailableEvents(ctx, def, inst)
	if err != nil {
		return fmt.Errorf("evaluating guards in %q: %w", inst.CurrentState, err)
	}

	out := cmd.OutOrStdout()
	if ws.wantJSON(eventsJSON) {
		return writeJSON(out, eventsReport{
			Workflow:  def.ID,
			State:     inst.CurrentState,
			Status:    inst.Status,
			Available: append([]string{}, available...),
		})
	}

	fmt.Fprintf(out, "%s at %q (%s)\n", def.ID, inst.CurrentState, inst.Status)
	if len(available) == 0 {
		fmt.Fprintln(out, "  no events can fire")
		return nil
	}
	for _, e := range available {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}
