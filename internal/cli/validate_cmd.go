package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/compiler"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

var validateStrict bool

// validateCmd implements "waypoint validate [files...]".
var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Compile and lint workflow definitions",
	Long: `Compile each workflow document against the built-in handlers and lint
the resulting definition. Without arguments, every file matched by
[definitions] paths is checked.

Exit status is 1 when any document fails to compile or has lint errors.
With --strict, lint warnings fail too.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat lint warnings as failures")
	rootCmd.AddCommand(validateCmd)
}

// validateReport is the JSON shape of one checked file.
type validateReport struct {
	Path     string   `json:"path"`
	Workflow string   `json:"workflow,omitempty"`
	Error    string   `json:"error,omitempty"`
	Errors   []string `json:"lint_errors,omitempty"`
	Warnings []string `json:"lint_warnings,omitempty"`
}

func (r validateReport) failed(strict bool) bool {
	return r.Error != "" || len(r.Errors) > 0 || (strict && len(r.Warnings) > 0)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		if files, err = ws.discover(); err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no workflow documents matched %v", ws.resolved.Config.Definitions.Paths)
		}
	}

	reports := make([]validateReport, 0, len(files))
	var compiled []*compiler.Loaded
	for _, path := range files {
		report, l := checkFile(ws.registry, path)
		reports = append(reports, report)
		if l != nil {
			compiled = append(compiled, l)
		}
	}
	markDuplicateIDs(reports, compiled)

	out := cmd.OutOrStdout()
	if ws.wantJSON(false) {
		if err := writeJSON(out, reports); err != nil {
			return err
		}
	} else {
		printValidateReports(out, reports)
	}

	failed := 0
	for _, r := range reports {
		if r.failed(validateStrict) {
			failed++
		}
	}
	if failed > 0 {
		return &exitError{code: 1, msg: fmt.Sprintf("%d of %d workflow document(s) failed validation", failed, len(reports))}
	}
	return nil
}

func checkFile(reg *compiler.Registry, path string) (validateReport, *compiler.Loaded) {
	report := validateReport{Path: path}
	def, doc, err := compiler.CompileFile(path, reg)
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}
	report.Workflow = def.ID
	result := workflow.Lint(def)
	report.Errors = lintStrings(result.Errors)
	report.Warnings = lintStrings(result.Warnings)
	return report, &compiler.Loaded{Path: path, Document: doc, Definition: def}
}

// markDuplicateIDs adds an error to every report whose workflow id is
// declared by another checked file too.
func markDuplicateIDs(reports []validateReport, compiled []*compiler.Loaded) {
	for _, dup := range compiler.DuplicateIDs(compiled) {
		for i := range reports {
			if reports[i].Workflow != dup.ID || reports[i].Error != "" {
				continue
			}
			others := make([]string, 0, len(dup.Paths)-1)
			for _, p := range dup.Paths {
				if p != reports[i].Path {
					others = append(others, p)
				}
			}
			reports[i].Errors = append(reports[i].Errors,
				fmt.Sprintf("[DUPLICATE_ID] workflow id %q is also declared by %s", dup.ID, strings.Join(others, ", ")))
		}
	}
}

func lintStrings(issues []workflow.LintIssue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		if i.State != "" {
			out = append(out, fmt.Sprintf("[%s] state %q: %s", i.Code, i.State, i.Message))
		} else {
			out = append(out, fmt.Sprintf("[%s] %s", i.Code, i.Message))
		}
	}
	return out
}

func printValidateReports(out io.Writer, reports []validateReport) {
	for _, r := range reports {
		switch {
		case r.Error != "":
			fmt.Fprintf(out, "%s %s\n", styleErrorLbl.Render("FAIL"), r.Path)
			fmt.Fprintf(out, "  %s\n", r.Error)
		case len(r.Errors) > 0:
			fmt.Fprintf(out, "%s %s (%s)\n", styleErrorLbl.Render("FAIL"), r.Path, r.Workflow)
		case len(r.Warnings) > 0:
			fmt.Fprintf(out, "%s %s (%s)\n", styleWarnLbl.Render("WARN"), r.Path, r.Workflow)
		default:
			fmt.Fprintf(out, "%s %s (%s)\n", styleSuccess.Render("ok"), r.Path, r.Workflow)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(out, "  error: %s\n", e)
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(out, "  warning: %s\n", w)
		}
	}
}
