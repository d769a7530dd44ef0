package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/config"
)

// Flag values for the init subcommand.
var (
	initFlagName     string
	initFlagWorkflow string
	initFlagPrefix   string
	initFlagForce    bool
)

// initWorkflowID is the shape accepted for --workflow.
var initWorkflowID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// initCmd implements "waypoint init [template]".
var initCmd = &cobra.Command{
	Use:   "init [template]",
	Short: "Create waypoint.toml and a starter workflow",
	Long: `Render an embedded starter project into the working directory: a
waypoint.toml and one workflow document under workflows/. Existing files are
kept unless --force is given.

Templates:
  basic     TOML checkout workflow (default)
  approval  JSON two-reviewer approval workflow`,
	Example: `  waypoint init
  waypoint init approval --workflow sign-off --prefix ap
  waypoint init basic --force`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"basic", "approval"},
	RunE:      runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initFlagName, "name", "n", "", "Project name (defaults to the directory name)")
	initCmd.Flags().StringVar(&initFlagWorkflow, "workflow", "", "Id of the starter workflow (defaults to the template's)")
	initCmd.Flags().StringVar(&initFlagPrefix, "prefix", "wp", "Instance id prefix written to [engine] id_prefix")
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	templateName := "basic"
	if len(args) > 0 {
		templateName = args[0]
	}
	if !config.TemplateExists(templateName) {
		available, err := config.ListTemplates()
		if err != nil {
			return fmt.Errorf("listing available templates: %w", err)
		}
		return fmt.Errorf("template %q not found; available templates: %s",
			templateName, strings.Join(available, ", "))
	}

	destDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projectName := initFlagName
	if projectName == "" {
		projectName = filepath.Base(destDir)
	}
	workflowID := initFlagWorkflow
	if workflowID == "" {
		workflowID = map[string]string{"basic": "checkout", "approval": "approval"}[templateName]
	}
	if !initWorkflowID.MatchString(workflowID) {
		return fmt.Errorf("invalid workflow id %q: use letters, digits, '.', '_' or '-'", workflowID)
	}
	if strings.ContainsAny(initFlagPrefix, " \t\n\"") {
		return fmt.Errorf("invalid prefix %q", initFlagPrefix)
	}

	cfgPath := filepath.Join(destDir, config.ConfigFileName)
	if _, statErr := os.Stat(cfgPath); statErr == nil && !initFlagForce {
		return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.ConfigFileName, destDir)
	}

	created, err := config.RenderTemplate(templateName, destDir, config.TemplateVars{
		ProjectName: projectName,
		WorkflowID:  workflowID,
		IDPrefix:    initFlagPrefix,
	}, initFlagForce)
	if err != nil {
		return fmt.Errorf("rendering template %q: %w", templateName, err)
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Initialized %q from template %q\n\n", projectName, templateName)
	if len(created) > 0 {
		fmt.Fprintln(stderr, "Created files:")
		for _, f := range created {
			rel, relErr := filepath.Rel(destDir, f)
			if relErr != nil {
				rel = f
			}
			fmt.Fprintf(stderr, "  %s\n", rel)
		}
		fmt.Fprintln(stderr)
	}
	fmt.Fprintln(stderr, "Next steps:")
	fmt.Fprintln(stderr, "  waypoint validate")
	fmt.Fprintf(stderr, "  waypoint describe %s\n", workflowID)
	fmt.Fprintf(stderr, "  waypoint run %s --interactive\n", workflowID)
	return nil
}
