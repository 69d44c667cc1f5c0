package workflow

import (
	"context"
	"fmt"
	"time"
)

// Planner is the external planner/executor a written workflow is handed
// to. Every call is a one-shot operation that either completes or fails.
type Planner interface {
	Plan(ctx context.Context, documentPath string, opts PlanOptions) (*PlanResult, error)
	Run(ctx context.Context, submitDir string, opts RunOptions) error
	Status(ctx context.Context, submitDir string, opts StatusOptions) (*Status, error)
	Wait(ctx context.Context, submitDir string, delay time.Duration) (*Status, error)
	Remove(ctx context.Context, submitDir string, verbose int) error
	Analyze(ctx context.Context, submitDir string, verbose int) (string, error)
	Statistics(ctx context.Context, submitDir string, verbose int) (string, error)
	Graph(ctx context.Context, documentPath string, opts GraphOptions) (string, error)
}

// Cleanup strategies accepted by PlanOptions.Cleanup.
const (
	CleanupNone       = "none"
	CleanupLeaf       = "leaf"
	CleanupInplace    = "inplace"
	CleanupConstraint = "constraint"
)

// PlanOptions are passed to the planner.
type PlanOptions struct {
	Conf         string
	Sites        []string
	OutputSites  []string          // defaults to ["local"]
	StagingSites map[string]string // execution site -> staging site
	InputDirs    []string
	OutputDir    string
	Dir          string
	RelativeDir  string
	RandomDir    string // "" for none, "." for a generated name, else the name
	Cleanup      string // defaults to inplace
	Verbose      int
	Force        bool
	Submit       bool
}

// withDefaults fills unset fields and validates the cleanup strategy.
func (o PlanOptions) withDefaults() (PlanOptions, error) {
	if len(o.OutputSites) == 0 {
		o.OutputSites = []string{"local"}
	}
	switch o.Cleanup {
	case "":
		o.Cleanup = CleanupInplace
	case CleanupNone, CleanupLeaf, CleanupInplace, CleanupConstraint:
	default:
		return o, errorf(KindInvalidArgument, "invalid cleanup strategy: %q", o.Cleanup)
	}
	if o.Verbose < 0 {
		return o, errorf(KindInvalidArgument, "verbose must not be negative")
	}
	return o, nil
}

// PlanResult is what the planner reports for a planned workflow.
type PlanResult struct {
	SubmitDir string
	Braindump *Braindump
}

// Braindump describes a planned workflow instance.
type Braindump struct {
	User             string `yaml:"user" json:"user"`
	GridDN           string `yaml:"grid_dn,omitempty" json:"grid_dn,omitempty"`
	SubmitHostname   string `yaml:"submit_hostname" json:"submit_hostname"`
	RootWfUUID       string `yaml:"root_wf_uuid" json:"root_wf_uuid"`
	WfUUID           string `yaml:"wf_uuid" json:"wf_uuid"`
	DAX              string `yaml:"dax" json:"dax"`
	DAXLabel         string `yaml:"dax_label" json:"dax_label"`
	DAXIndex         string `yaml:"dax_index,omitempty" json:"dax_index,omitempty"`
	DAXVersion       string `yaml:"dax_version,omitempty" json:"dax_version,omitempty"`
	PegasusWfName    string `yaml:"pegasus_wf_name" json:"pegasus_wf_name"`
	Timestamp        string `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	BaseDir          string `yaml:"basedir" json:"basedir"`
	SubmitDir        string `yaml:"submit_dir" json:"submit_dir"`
	PlannerArguments string `yaml:"planner_arguments,omitempty" json:"planner_arguments,omitempty"`
	Planner          string `yaml:"planner,omitempty" json:"planner,omitempty"`
	PlannerVersion   string `yaml:"planner_version,omitempty" json:"planner_version,omitempty"`
	Type             string `yaml:"type,omitempty" json:"type,omitempty"`
	DAG              string `yaml:"dag,omitempty" json:"dag,omitempty"`
	CondorLog        string `yaml:"condor_log,omitempty" json:"condor_log,omitempty"`
	Properties       string `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// RunOptions are passed when starting a planned workflow.
type RunOptions struct {
	Verbose int
	JSON    bool
}

// StatusOptions are passed when querying workflow status.
type StatusOptions struct {
	Long    bool
	Verbose int
}

// Workflow states reported by Status.
const (
	StateRunning = "Running"
	StateSuccess = "Success"
	StateFailure = "Failure"
	StateUnknown = "Unknown"
)

// Status is the progress of the root workflow.
type Status struct {
	State       string  `json:"state"`
	PercentDone float64 `json:"percent_done"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Running     int     `json:"running"`
	Queued      int     `json:"queued"`
	Unready     int     `json:"unready"`
}

// Done reports whether the workflow reached a terminal state.
func (s *Status) Done() bool {
	return s.State == StateSuccess || s.State == StateFailure
}

// Graph label styles.
var graphLabels = []string{"label", "xform", "id", "xform-id", "label-xform", "label-id"}

// GraphOptions configure graph rendering.
type GraphOptions struct {
	Simplify bool     // apply transitive reduction; off by default
	Label    string   // one of label, xform, id, xform-id, label-xform, label-id
	Output   string   // write to this file instead of returning the output
	Remove   []string // transformations to leave out
	Width    int
	Height   int
}

// Plan writes the workflow to DefaultFilename if it was never written,
// plans it with p and keeps the submit directory for the calls that follow.
func (w *Workflow) Plan(ctx context.Context, p Planner, opts PlanOptions) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	if w.path == "" {
		if err := w.WriteFile(DefaultFilename); err != nil {
			return err
		}
	}
	res, err := p.Plan(ctx, w.path, opts)
	if err != nil {
		return fmt.Errorf("plan %s: %w", w.name, err)
	}
	if res == nil || res.SubmitDir == "" {
		return fmt.Errorf("plan %s: planner returned no submit directory", w.name)
	}
	w.submitDir = res.SubmitDir
	w.braindump = res.Braindump
	w.logger.Info("workflow planned", "submit_dir", w.submitDir)
	return nil
}

// SubmitDir returns the submit directory set by Plan.
func (w *Workflow) SubmitDir() string { return w.submitDir }

// Braindump returns the planner's description of the planned instance.
func (w *Workflow) Braindump() (*Braindump, error) {
	if err := w.needsSubmitDir("Braindump"); err != nil {
		return nil, err
	}
	return w.braindump, nil
}

// Run starts the planned workflow.
func (w *Workflow) Run(ctx context.Context, p Planner, opts RunOptions) error {
	if err := w.needsSubmitDir("Run"); err != nil {
		return err
	}
	return p.Run(ctx, w.submitDir, opts)
}

// Status reports the progress of the planned workflow.
func (w *Workflow) Status(ctx context.Context, p Planner, opts StatusOptions) (*Status, error) {
	if err := w.needsSubmitDir("Status"); err != nil {
		return nil, err
	}
	return p.Status(ctx, w.submitDir, opts)
}

// Wait blocks until the planned workflow finishes, polling every delay.
func (w *Workflow) Wait(ctx context.Context, p Planner, delay time.Duration) (*Status, error) {
	if err := w.needsSubmitDir("Wait"); err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return p.Wait(ctx, w.submitDir, delay)
}

// Remove stops the planned workflow.
func (w *Workflow) Remove(ctx context.Context, p Planner, verbose int) error {
	if err := w.needsSubmitDir("Remove"); err != nil {
		return err
	}
	return p.Remove(ctx, w.submitDir, verbose)
}

// Analyze reports on failed jobs of the planned workflow.
func (w *Workflow) Analyze(ctx context.Context, p Planner, verbose int) (string, error) {
	if err := w.needsSubmitDir("Analyze"); err != nil {
		return "", err
	}
	return p.Analyze(ctx, w.submitDir, verbose)
}

// Statistics summarizes a finished run.
func (w *Workflow) Statistics(ctx context.Context, p Planner, verbose int) (string, error) {
	if err := w.needsSubmitDir("Statistics"); err != nil {
		return "", err
	}
	return p.Statistics(ctx, w.submitDir, verbose)
}

// Graph renders the written workflow document as a graphviz graph.
func (w *Workflow) Graph(ctx context.Context, p Planner, opts GraphOptions) (string, error) {
	if w.path == "" {
		return "", errorf(KindPrecondition, "workflow must be written to a file with WriteFile or Plan before Graph")
	}
	if opts.Label == "" {
		opts.Label = "label"
	}
	valid := false
	for _, l := range graphLabels {
		if opts.Label == l {
			valid = true
			break
		}
	}
	if !valid {
		return "", errorf(KindInvalidArgument, "invalid label: %q; label must be one of %v", opts.Label, graphLabels)
	}
	return p.Graph(ctx, w.path, opts)
}

func (w *Workflow) needsSubmitDir(op string) error {
	if w.submitDir == "" {
		return errorf(KindPrecondition, "%s requires a submit directory; Plan must be called before %s", op, op)
	}
	return nil
}

// Attach binds a workflow to an instance planned earlier, e.g. one
// recorded in a run registry, so that Run, Status and friends can be used
// without planning again.
func (w *Workflow) Attach(submitDir string, bd *Braindump) error {
	if submitDir == "" {
		return errorf(KindInvalidArgument, "submit directory must not be empty")
	}
	w.submitDir = submitDir
	w.braindump = bd
	return nil
}
