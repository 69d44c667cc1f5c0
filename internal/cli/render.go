package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/wfkit/internal/script"
	"github.com/me/wfkit/pkg/workflow"
)

type outputFlags struct {
	output string
	format string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write the document to this file instead of stdout")
	cmd.Flags().StringVar(&o.format, "format", "", "Document format: yml or json (default: by output extension, else yml)")
}

// write renders wf to the output file or to the command's stdout.
func (o *outputFlags) write(cmd *cobra.Command, wf *workflow.Workflow) error {
	format := workflow.FormatYAML
	if o.output != "" {
		format = workflow.FormatForPath(o.output)
	}
	if o.format != "" {
		f, err := workflow.ParseFormat(o.format)
		if err != nil {
			return err
		}
		format = f
	}

	if o.output == "" {
		return wf.Write(cmd.OutOrStdout(), format)
	}
	f, err := os.Create(o.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", o.output, err)
	}
	if err := wf.Write(f, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", o.output)
	return nil
}

// loadWorkflow reads a document, or evaluates a script when path ends in .js.
func (a *app) loadWorkflow(cmd *cobra.Command, path string, infer bool) (*workflow.Workflow, error) {
	if strings.EqualFold(filepath.Ext(path), ".js") {
		return script.New(a.logger).RunFile(cmd.Context(), path)
	}
	return workflow.LoadFile(path,
		workflow.WithInferDependencies(infer),
		workflow.WithLogger(a.logger),
	)
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		out     outputFlags
		noInfer bool
	)
	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Validate a document and write it in canonical form",
		Long: "Render loads a YAML or JSON workflow document (or a .js script), validates it,\n" +
			"infers dependencies from file uses and writes the canonical document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.loadWorkflow(cmd, args[0], !noInfer)
			if err != nil {
				return err
			}
			return out.write(cmd, wf)
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVar(&noInfer, "no-infer", false, "Keep the dependencies exactly as written")
	return cmd
}

func newBuildCmd(a *app) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "build <script.js>",
		Short: "Run a workflow script and write the document it builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := script.New(a.logger).RunFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return out.write(cmd, wf)
		},
	}
	out.register(cmd)
	return cmd
}
