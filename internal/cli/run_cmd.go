package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/session"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// runFlags holds the flag values for the run subcommand.
type runFlags struct {
	Events      []string
	Context     string
	InstanceID  string
	JSON        bool
	Interactive bool
}

var runOpts runFlags

// quitChoice is the picker value that ends an interactive run.
const quitChoice = "\x00quit"

// errPickerAborted is returned by the event picker when the user quits.
var errPickerAborted = errors.New("picker aborted")

// pickEvent asks the user to choose the next event. Tests replace it.
var pickEvent = func(state string, events []string) (string, error) {
	options := make([]huh.Option[string], 0, len(events)+1)
	for _, e := range events {
		options = append(options, huh.NewOption(e, e))
	}
	options = append(options, huh.NewOption("(quit)", quitChoice))

	var choice string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("In %q: choose an event", state)).
				Options(options...).
				Value(&choice),
		),
	).WithTheme(huh.ThemeCharm()).Run()
	if errors.Is(err, huh.ErrUserAborted) || choice == quitChoice {
		return "", errPickerAborted
	}
	return choice, err
}

// runCmd implements "waypoint run <workflow>".
var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Start a workflow instance and feed it events",
	Long: `Start an instance of <workflow>, let it settle through automatic states,
then dispatch each --event in order. The final history and status are
printed when the events run out.

<workflow> is a definition id or a path to a document. --context takes a JSON
object (or @file) merged over the document's [context] table.`,
	Example: `  waypoint run checkout --event ADD_ITEM --event CHECKOUT
  waypoint run workflows/approval.json --context '{"approvals":1}' --event SUBMIT --json
  waypoint run checkout --interactive`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeWorkflowIDs,
	RunE:              runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringArrayVarP(&runOpts.Events, "event", "e", nil, "Event to dispatch (repeatable, in order)")
	f.StringVar(&runOpts.Context, "context", "", "JSON object (or @file) merged into the initial context")
	f.StringVar(&runOpts.InstanceID, "instance-id", "", "Use this instance id instead of generating one")
	f.BoolVar(&runOpts.JSON, "json", false, "Print the result as JSON")
	f.BoolVarP(&runOpts.Interactive, "interactive", "i", false, "Pick events from a menu after the given ones run out")
	rootCmd.AddCommand(runCmd)
}

// dispatchRecord is one dispatched event in the run report.
type dispatchRecord struct {
	Event        string          `json:"event"`
	Transitioned bool            `json:"transitioned"`
	State        string          `json:"state"`
	Status       workflow.Status `json:"status"`
}

// runReport is the JSON shape of `waypoint run --json`.
type runReport struct {
	Instance   session.Snapshot `json:"instance"`
	Dispatched []dispatchRecord `json:"dispatched"`
	Events     []workflow.Event `json:"events"`

	// DroppedEvents counts engine events lost because the collector fell
	// behind.
	DroppedEvents uint64 `json:"dropped_events"`
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	overrides, err := parseContextOverrides(runOpts.Context)
	if err != nil {
		return err
	}
	loaded, err := ws.resolve(ctx, args[0])
	if err != nil {
		return err
	}

	events := newEventCollector(256)
	defer events.stop()
	eng := ws.engine(logging.New("engine"), workflow.WithEventChannel(events.ch))

	var sessOpts []session.Option
	if runOpts.InstanceID != "" {
		sessOpts = append(sessOpts, session.WithStartOptions(workflow.WithInstanceID(runOpts.InstanceID)))
	}
	sessOpts = append(sessOpts, session.WithLogger(logging.New("session")))

	s, err := session.Open(ctx, eng, loaded.Definition, loaded.Document.InitialData(overrides), sessOpts...)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	jsonOut := ws.wantJSON(runOpts.JSON)
	report := runReport{Dispatched: []dispatchRecord{}}

	dispatch := func(event string) error {
		res, err := s.Dispatch(ctx, event)
		if err != nil {
			return err
		}
		rec := dispatchRecord{
			Event:        event,
			Transitioned: res.Transitioned,
			State:        res.Instance.CurrentState,
			Status:       res.Instance.Status,
		}
		report.Dispatched = append(report.Dispatched, rec)
		if !jsonOut {
			printDispatch(out, rec)
		}
		return nil
	}

	for _, event := range runOpts.Events {
		if err := dispatch(event); err != nil {
			return err
		}
	}

	if runOpts.Interactive {
		if err := runInteractive(ctx, s, dispatch); err != nil {
			return err
		}
	}

	report.Instance = s.Snapshot()
	report.Events = events.stop()
	report.DroppedEvents = eng.DroppedEvents()
	if report.DroppedEvents > 0 {
		logging.New("cli").Warn("engine events dropped", "count", report.DroppedEvents)
	}

	if jsonOut {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		f := workflow.NewFormatter(out, !flagNoColor)
		f.Write(workflow.FormatInstance(f, report.Instance))
	}

	if report.Instance.Status == workflow.StatusError {
		return &exitError{code: 2, msg: fmt.Sprintf("instance %s failed: %v", report.Instance.InstanceID, report.Instance.Err)}
	}
	return nil
}

// runInteractive prompts for events until the instance stops running, no
// event can fire, or the user quits.
func runInteractive(ctx context.Context, s *session.Session, dispatch func(string) error) error {
	for s.Snapshot().Running() {
		available, err := s.AvailableEvents(ctx)
		if err != nil {
			return err
		}
		if len(available) == 0 {
			logging.New("cli").Info("no event can fire", "state", s.Snapshot().CurrentState)
			return nil
		}
		event, err := pickEvent(s.Snapshot().CurrentState, available)
		if errors.Is(err, errPickerAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("choosing event: %w", err)
		}
		if err := dispatch(event); err != nil {
			return err
		}
	}
	return nil
}

func printDispatch(out io.Writer, rec dispatchRecord) {
	switch {
	case rec.Transitioned:
		fmt.Fprintf(out, "%s -> %s (%s)\n", rec.Event, rec.State, rec.Status)
		return
	case rec.Status == workflow.StatusError:
		fmt.Fprintf(out, "%s %s in %q\n", rec.Event, styleErrorLbl.Render("failed"), rec.State)
		return
	}
	fmt.Fprintf(out, "%s %s in %q\n", rec.Event, styleWarnLbl.Render("ignored"), rec.State)
}

// eventCollector receives engine events on its own goroutine for the whole
// run, so the channel buffer only has to absorb bursts.
type eventCollector struct {
	ch   chan workflow.Event
	done chan []workflow.Event
	once sync.Once
	got  []workflow.Event
}

func newEventCollector(buffer int) *eventCollector {
	c := &eventCollector{
		ch:   make(chan workflow.Event, buffer),
		done: make(chan []workflow.Event, 1),
	}
	go func() {
		all := []workflow.Event{}
		for ev := range c.ch {
			all = append(all, ev)
		}
		c.done <- all
	}()
	return c
}

// stop closes the channel and returns everything received. The engine must
// not emit after the first call. Later calls return the same events.
func (c *eventCollector) stop() []workflow.Event {
	c.once.Do(func() {
		close(c.ch)
		c.got = <-c.done
	})
	return c.got
}
