package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/me/wfkit/pkg/model"
	"github.com/me/wfkit/pkg/workflow"
)

// attach looks up a recorded run and binds a workflow to its submit
// directory.
func (a *app) attach(cmd *cobra.Command, id string) (*model.Run, *workflow.Workflow, error) {
	st, err := a.openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	run, err := st.GetRun(cmd.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	if run == nil {
		return nil, nil, fmt.Errorf("run %s not found", id)
	}
	wf, err := workflow.New(run.WorkflowName, workflow.WithLogger(a.logger))
	if err != nil {
		return nil, nil, err
	}
	bd := &workflow.Braindump{
		User:           run.User,
		RootWfUUID:     run.RootWfUUID,
		WfUUID:         run.WfUUID,
		SubmitDir:      run.SubmitDir,
		PlannerVersion: run.PlannerVersion,
	}
	if err := wf.Attach(run.SubmitDir, bd); err != nil {
		return nil, nil, err
	}
	return run, wf, nil
}

// transition moves run to next and saves it. A move the lifecycle does not
// allow is an error.
func (a *app) transition(cmd *cobra.Command, run *model.Run, next model.RunState) error {
	if !run.State.CanTransitionTo(next) {
		return &model.InvalidTransitionError{ID: run.ID, From: run.State, To: next}
	}
	run.State = next
	return a.store.UpdateRun(cmd.Context(), run)
}

// record saves the progress reported by the planner. A reported state the
// lifecycle cannot reach from the recorded one is logged and left alone.
func (a *app) record(cmd *cobra.Command, run *model.Run, st *workflow.Status) error {
	run.PercentDone = st.PercentDone
	if next, ok := model.RunStateFromPlanner(st.State); ok {
		if run.State.CanTransitionTo(next) {
			run.State = next
		} else {
			a.logger.Warn("ignoring reported state", "run_id", run.ID, "recorded", run.State, "reported", next)
		}
	}
	return a.store.UpdateRun(cmd.Context(), run)
}

func printStatus(w io.Writer, run *model.Run, st *workflow.Status) {
	fmt.Fprintf(w, "Run:      %s (%s)\n", run.ID, run.WorkflowName)
	fmt.Fprintf(w, "State:    %s\n", st.State)
	fmt.Fprintf(w, "Progress: %.1f%%\n", st.PercentDone)
	fmt.Fprintf(w, "Jobs:     %d succeeded, %d failed, %d running, %d queued, %d unready\n",
		st.Succeeded, st.Failed, st.Running, st.Queued, st.Unready)
}

func newRunCmd(a *app) *cobra.Command {
	var opts workflow.RunOptions
	cmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Start a planned run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, wf, err := a.attach(cmd, args[0])
			if err != nil {
				return err
			}
			if !run.State.CanTransitionTo(model.RunStateRunning) {
				return &model.InvalidTransitionError{ID: run.ID, From: run.State, To: model.RunStateRunning}
			}
			if err := wf.Run(cmd.Context(), a.planner, opts); err != nil {
				return err
			}
			if err := a.transition(cmd, run, model.RunStateRunning); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s started\n", run.ID)
			return nil
		},
	}
	cmd.Flags().CountVarP(&opts.Verbose, "verbose", "v", "Tool verbosity (repeatable)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Ask the tool for JSON output")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var opts workflow.StatusOptions
	cmd := &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the progress of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, wf, err := a.attach(cmd, args[0])
			if err != nil {
				return err
			}
			st, err := wf.Status(cmd.Context(), a.planner, opts)
			if err != nil {
				return err
			}
			if err := a.record(cmd, run, st); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), run, st)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Long, "long", "l", false, "Include sub-workflows")
	cmd.Flags().CountVarP(&opts.Verbose, "verbose", "v", "Tool verbosity (repeatable)")
	return cmd
}

func newWaitCmd(a *app) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "wait <run-id>",
		Short: "Block until a run finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, wf, err := a.attach(cmd, args[0])
			if err != nil {
				return err
			}
			if delay <= 0 {
				delay = a.cfg.PollDelay
			}
			st, err := wf.Wait(cmd.Context(), a.planner, delay)
			if st != nil {
				if rerr := a.record(cmd, run, st); rerr != nil && err == nil {
					err = rerr
				}
				printStatus(cmd.OutOrStdout(), run, st)
			}
			if err != nil {
				return err
			}
			if st.State == workflow.StateFailure {
				return fmt.Errorf("run %s failed", run.ID)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "Polling interval (default from config)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var verbose int
	cmd := &cobra.Command{
		Use:   "remove <run-id>",
		Short: "Stop a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, wf, err := a.attach(cmd, args[0])
			if err != nil {
				return err
			}
			if !run.State.CanTransitionTo(model.RunStateRemoved) {
				return &model.InvalidTransitionError{ID: run.ID, From: run.State, To: model.RunStateRemoved}
			}
			if err := wf.Remove(cmd.Context(), a.planner, verbose); err != nil {
				return err
			}
			if err := a.transition(cmd, run, model.RunStateRemoved); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s removed\n", run.ID)
			return nil
		},
	}
	cmd.Flags().CountVarP(&verbose, "verbose", "v", "Tool verbosity (repeatable)")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var verbose int
	cmd := &cobra.Command{
		Use:   "analyze <run-id>",
		Short: "Report on the failed jobs of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, wf, err := a.attach(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := wf.Analyze(cmd.Context(), a.planner, verbose)
			fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().CountVarP(&verbose, "verbose", "v", "Tool verbosity (repeatable)")
	return cmd
}

func newStatisticsCmd(a *app) *cobra.Command {
	var verbose int
	cmd := &cobra.Command{
		Use:   "statistics <run-id>",
		Short: "Summarize a finished run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, wf, err := a.attach(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := wf.Statistics(cmd.Context(), a.planner, verbose)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().CountVarP(&verbose, "verbose", "v", "Tool verbosity (repeatable)")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	opts := model.DefaultListOptions()
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			runs, total, err := st.ListRuns(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs found")
				return nil
			}

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
			idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
			nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
			countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

			fmt.Fprintln(w)
			fmt.Fprintln(w, headerStyle.Render("  Runs"))
			fmt.Fprintln(w, headerStyle.Render("  "+strings.Repeat("-", 60)))
			fmt.Fprintln(w)
			for _, r := range runs {
				fmt.Fprintf(w, "  %s  %s  %s\n",
					idStyle.Render(r.ID),
					nameStyle.Render(r.WorkflowName),
					stateStyle(r.State).Render(fmt.Sprintf("%s %.0f%%", r.State, r.PercentDone)),
				)
				fmt.Fprintf(w, "    %s  %s\n",
					r.SubmitDir,
					countStyle.Render(r.CreatedAt.Local().Format(time.DateTime)),
				)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  %s\n", countStyle.Render(fmt.Sprintf("%d of %d runs", len(runs), total)))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.State, "state", "", "Only runs in this state")
	cmd.Flags().StringVar(&opts.WorkflowName, "workflow", "", "Only runs of this workflow")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", opts.Limit, "Maximum number of runs to show")
	return cmd
}

func stateStyle(s model.RunState) lipgloss.Style {
	color := "255"
	switch s {
	case model.RunStateSuccess:
		color = "42"
	case model.RunStateFailed:
		color = "196"
	case model.RunStateRunning:
		color = "39"
	case model.RunStateRemoved:
		color = "245"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
