package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/me/wfkit/pkg/workflow"
)

func newGraphCmd(a *app) *cobra.Command {
	var opts workflow.GraphOptions
	cmd := &cobra.Command{
		Use:   "graph <document>",
		Short: "Render the job graph of a document with graphviz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.loadWorkflow(cmd, args[0], true)
			if err != nil {
				return err
			}
			dir, err := os.MkdirTemp("", "wfkit-graph-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)
			if err := wf.WriteFile(filepath.Join(dir, workflow.DefaultFilename)); err != nil {
				return err
			}

			out, err := wf.Graph(cmd.Context(), a.planner, opts)
			if err != nil {
				return err
			}
			if opts.Output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", opts.Output)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Label, "label", "label", "Node label: label, xform, id, xform-id, label-xform, label-id")
	f.StringVarP(&opts.Output, "output", "o", "", "Write the graph to this file")
	f.StringSliceVar(&opts.Remove, "remove", nil, "Transformations to leave out")
	f.IntVar(&opts.Width, "width", 0, "Graph width")
	f.IntVar(&opts.Height, "height", 0, "Graph height")
	f.BoolVar(&opts.Simplify, "simplify", false, "Drop edges implied by transitivity")
	return cmd
}
