package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

var describeJSON bool

// describeCmd implements "waypoint describe <workflow>".
var describeCmd = &cobra.Command{
	Use:   "describe <workflow>",
	Short: "Print a workflow's state outline",
	Long: `Print the states of a workflow in breadth-first order from its initial
state, with each state's transitions, guards and hooks. <workflow> is a
definition id or a path to a document.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeWorkflowIDs,
	RunE:              runDescribe,
}

func init() {
	describeCmd.Flags().BoolVar(&describeJSON, "json", false, "Print the parsed document as JSON")
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	loaded, err := ws.resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ws.wantJSON(describeJSON) {
		return writeJSON(out, loaded.Document)
	}

	f := workflow.NewFormatter(out, !flagNoColor)
	f.Write(workflow.FormatDefinition(f, loaded.Definition))
	if desc := loaded.Document.Description; desc != "" {
		fmt.Fprintf(out, "Description: %s\n", desc)
	}
	fmt.Fprintf(out, "Source: %s\n", loaded.Path)
	return nil
}
