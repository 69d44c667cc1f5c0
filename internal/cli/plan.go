package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/me/wfkit/pkg/model"
	"github.com/me/wfkit/pkg/workflow"
)

func newPlanCmd(a *app) *cobra.Command {
	var (
		opts    workflow.PlanOptions
		output  string
		noInfer bool
	)
	cmd := &cobra.Command{
		Use:   "plan <document>",
		Short: "Plan a workflow and record the run",
		Long: "Plan renders the document (or .js script) to --output, hands it to the\n" +
			"planner and records the planned instance in the run registry. The\n" +
			"printed run id addresses it in run, status, wait and remove.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wf, err := a.loadWorkflow(cmd, args[0], !noInfer)
			if err != nil {
				return err
			}
			if err := wf.WriteFile(output); err != nil {
				return err
			}

			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			if err := wf.Plan(ctx, a.planner, opts); err != nil {
				return err
			}

			docPath, err := filepath.Abs(wf.Path())
			if err != nil {
				return err
			}
			run := &model.Run{
				WorkflowName: wf.Name(),
				DocumentPath: docPath,
				SubmitDir:    wf.SubmitDir(),
				State:        model.RunStatePlanned,
			}
			if bd, _ := wf.Braindump(); bd != nil {
				run.RootWfUUID = bd.RootWfUUID
				run.WfUUID = bd.WfUUID
				run.User = bd.User
				run.PlannerVersion = bd.PlannerVersion
			}
			if opts.Submit {
				run.State = model.RunStateRunning
			}
			if err := st.CreateRun(ctx, run); err != nil {
				return err
			}
			a.logger.Info("run recorded", "run_id", run.ID, "submit_dir", run.SubmitDir)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run:        %s\n", run.ID)
			fmt.Fprintf(w, "Submit dir: %s\n", run.SubmitDir)
			fmt.Fprintf(w, "State:      %s\n", run.State)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", workflow.DefaultFilename, "Where the rendered document is written for the planner")
	f.BoolVar(&noInfer, "no-infer", false, "Keep the dependencies exactly as written")
	f.StringVar(&opts.Conf, "conf", "", "Planner properties file")
	f.StringSliceVarP(&opts.Sites, "sites", "s", nil, "Execution sites")
	f.StringSliceVar(&opts.OutputSites, "output-sites", nil, "Output sites (default local)")
	f.StringToStringVar(&opts.StagingSites, "staging-site", nil, "Staging site per execution site, as exec=stage")
	f.StringSliceVar(&opts.InputDirs, "input-dir", nil, "Directories holding input files")
	f.StringVar(&opts.OutputDir, "output-dir", "", "Directory for output files")
	f.StringVar(&opts.Dir, "dir", "", "Base directory of the submit directory")
	f.StringVar(&opts.RelativeDir, "relative-dir", "", "Submit directory relative to --dir")
	f.StringVar(&opts.RandomDir, "random-dir", "", "Random submit directory name; '.' picks one")
	f.StringVar(&opts.Cleanup, "cleanup", workflow.CleanupInplace, "Cleanup strategy: none, leaf, inplace, constraint")
	f.CountVarP(&opts.Verbose, "verbose", "v", "Planner verbosity (repeatable)")
	f.BoolVar(&opts.Force, "force", false, "Skip data reuse")
	f.BoolVar(&opts.Submit, "submit", false, "Start the workflow after planning")
	return cmd
}
