package workflow

import "math"

// AbstractJob is a node of the workflow graph: either a *Job or a
// *SubWorkflow.
type AbstractJob interface {
	// ID is empty until assigned explicitly or by Workflow.AddJobs.
	ID() string
	Document() *Doc
	base() *JobBase
}

// JobBase carries the fields every job kind has. It is embedded in Job and
// SubWorkflow and is not used on its own.
type JobBase struct {
	Attributes

	id        string
	nodeLabel string
	args      []any
	uses      useSet

	stdin  *File
	stdout *File
	stderr *File
}

func (j *JobBase) base() *JobBase { return j }

// ID returns the job id, empty until assigned.
func (j *JobBase) ID() string { return j.id }

// NodeLabel returns the optional label.
func (j *JobBase) NodeLabel() string { return j.nodeLabel }

// AddInputs adds each file as an input of the job.
func (j *JobBase) AddInputs(files ...*File) error {
	return j.addInputs(false, files)
}

// AddBypassInputs adds inputs that are staged directly to the compute
// site, skipping the staging site.
func (j *JobBase) AddBypassInputs(files ...*File) error {
	return j.addInputs(true, files)
}

func (j *JobBase) addInputs(bypass bool, files []*File) error {
	for _, f := range files {
		if f == nil {
			return errorf(KindInvalidArgument, "invalid input file: nil; input files must be of type *File")
		}
		u, err := newUse(f, LinkInput, nil, nil, bypass)
		if err != nil {
			return err
		}
		if j.uses.has(f.LFN) {
			return errorf(KindDuplicate, "file %s has already been added as input to this job", f.LFN)
		}
		if err := j.uses.add(u); err != nil {
			return err
		}
	}
	return nil
}

// AddOutputs adds each file as an output that is staged out and
// registered in the replica catalog.
func (j *JobBase) AddOutputs(files ...*File) error {
	return j.AddOutputsStaged(true, true, files...)
}

// AddOutputsStaged adds outputs with explicit staging directives.
func (j *JobBase) AddOutputsStaged(stageOut, registerReplica bool, files ...*File) error {
	for _, f := range files {
		if f == nil {
			return errorf(KindInvalidArgument, "invalid output file: nil; output files must be of type *File")
		}
		u, err := newUse(f, LinkOutput, boolPtr(stageOut), boolPtr(registerReplica), false)
		if err != nil {
			return err
		}
		if j.uses.has(f.LFN) {
			return errorf(KindDuplicate, "file %s has already been added as output to this job", f.LFN)
		}
		if err := j.uses.add(u); err != nil {
			return err
		}
	}
	return nil
}

// AddCheckpoint adds a checkpoint file. Checkpoints take no part in
// dependency inference.
func (j *JobBase) AddCheckpoint(f *File, stageOut, registerReplica bool) error {
	if f == nil {
		return errorf(KindInvalidArgument, "invalid checkpoint file: nil; checkpoint file must be of type *File")
	}
	u, err := newUse(f, LinkCheckpoint, boolPtr(stageOut), boolPtr(registerReplica), false)
	if err != nil {
		return err
	}
	if j.uses.has(f.LFN) {
		return errorf(KindDuplicate, "file %s has already been added as checkpoint to this job", f.LFN)
	}
	return j.uses.add(u)
}

// AddArgs appends arguments. Each must be a string, a number or a *File;
// files render as their LFN.
func (j *JobBase) AddArgs(args ...any) error {
	for _, a := range args {
		if f, ok := a.(*File); ok {
			if f == nil {
				return errorf(KindInvalidArgument, "invalid argument: nil *File")
			}
			continue
		}
		if _, isBool := a.(bool); isBool || !isScalar(a) {
			return errorf(KindInvalidArgument, "invalid argument: %v (%T); arguments must be strings, numbers or *File", a, a)
		}
		if !isFinite(a) {
			return errorf(KindInvalidArgument, "invalid argument: %v; numeric arguments must be finite", a)
		}
	}
	j.args = append(j.args, args...)
	return nil
}

func isFinite(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	}
	return true
}

// Args returns the argument list.
func (j *JobBase) Args() []any {
	out := make([]any, len(j.args))
	copy(out, j.args)
	return out
}

// SetStdin sets stdin to a *File or a file name and registers it as an
// input.
func (j *JobBase) SetStdin(file any) error {
	if j.stdin != nil {
		return errorf(KindDuplicate, "stdin has already been set to a file")
	}
	f, err := toFile(file, "stdin")
	if err != nil {
		return err
	}
	if err := j.AddInputs(f); err != nil {
		return err
	}
	j.stdin = f
	return nil
}

// SetStdout sets stdout to a *File or a file name and registers it as an
// output that is staged out and registered in the replica catalog.
func (j *JobBase) SetStdout(file any) error {
	return j.SetStdoutStaged(file, true, true)
}

// SetStdoutStaged sets stdout with explicit staging directives.
func (j *JobBase) SetStdoutStaged(file any, stageOut, registerReplica bool) error {
	if j.stdout != nil {
		return errorf(KindDuplicate, "stdout has already been set to a file")
	}
	f, err := toFile(file, "stdout")
	if err != nil {
		return err
	}
	if err := j.AddOutputsStaged(stageOut, registerReplica, f); err != nil {
		return err
	}
	j.stdout = f
	return nil
}

// SetStderr sets stderr to a *File or a file name and registers it as an
// output that is staged out and registered in the replica catalog.
func (j *JobBase) SetStderr(file any) error {
	return j.SetStderrStaged(file, true, true)
}

// SetStderrStaged sets stderr with explicit staging directives.
func (j *JobBase) SetStderrStaged(file any, stageOut, registerReplica bool) error {
	if j.stderr != nil {
		return errorf(KindDuplicate, "stderr has already been set to a file")
	}
	f, err := toFile(file, "stderr")
	if err != nil {
		return err
	}
	if err := j.AddOutputsStaged(stageOut, registerReplica, f); err != nil {
		return err
	}
	j.stderr = f
	return nil
}

func (j *JobBase) Stdin() *File  { return j.stdin }
func (j *JobBase) Stdout() *File { return j.stdout }
func (j *JobBase) Stderr() *File { return j.stderr }

// Uses returns the job's file uses in the order they were added.
func (j *JobBase) Uses() []*Use {
	return j.uses.list()
}

// Inputs returns the files used with link type input.
func (j *JobBase) Inputs() []*File {
	return j.filesOf(LinkInput)
}

// Outputs returns the files used with link type output.
func (j *JobBase) Outputs() []*File {
	return j.filesOf(LinkOutput)
}

func (j *JobBase) filesOf(t LinkType) []*File {
	var out []*File
	for _, u := range j.uses.list() {
		if u.Type == t {
			out = append(out, u.File)
		}
	}
	return out
}

// fillDocument appends the common job fields to d.
func (j *JobBase) fillDocument(d *Doc) {
	if j.id != "" {
		d.Set("id", j.id)
	}
	if j.stdin != nil {
		d.Set("stdin", j.stdin.LFN)
	}
	if j.stdout != nil {
		d.Set("stdout", j.stdout.LFN)
	}
	if j.stderr != nil {
		d.Set("stderr", j.stderr.LFN)
	}
	if j.nodeLabel != "" {
		d.Set("nodeLabel", j.nodeLabel)
	}
	args := make([]any, 0, len(j.args))
	for _, a := range j.args {
		if f, ok := a.(*File); ok {
			args = append(args, f.LFN)
			continue
		}
		args = append(args, a)
	}
	d.Set("arguments", args)
	uses := make([]any, 0, len(j.uses.order))
	for _, u := range j.uses.list() {
		uses = append(uses, u.Document())
	}
	d.Set("uses", uses)

	profiles, metadata, hooks := j.attributeDocs()
	if profiles != nil {
		d.Set("profiles", profiles)
	}
	if metadata != nil {
		d.Set("metadata", metadata)
	}
	if hooks != nil {
		d.Set("hooks", hooks)
	}
}

// JobOption configures a job at construction.
type JobOption func(*jobOptions)

type jobOptions struct {
	id        string
	nodeLabel string
	namespace string
	version   string
}

// WithID assigns an explicit job id instead of a generated one.
func WithID(id string) JobOption {
	return func(o *jobOptions) { o.id = id }
}

// WithNodeLabel sets a short descriptive label.
func WithNodeLabel(label string) JobOption {
	return func(o *jobOptions) { o.nodeLabel = label }
}

// WithNamespace sets the transformation namespace of a Job built from a
// transformation name.
func WithNamespace(ns string) JobOption {
	return func(o *jobOptions) { o.namespace = ns }
}

// WithVersion sets the transformation version of a Job built from a
// transformation name.
func WithVersion(v string) JobOption {
	return func(o *jobOptions) { o.version = v }
}

// Job runs an executable transformation.
type Job struct {
	JobBase

	Transformation string
	Namespace      string
	Version        string
}

// NewJob creates a job for transformation, which is either a
// *Transformation (name, namespace and version are copied) or a
// transformation name.
func NewJob(transformation any, opts ...JobOption) (*Job, error) {
	var o jobOptions
	for _, opt := range opts {
		opt(&o)
	}
	j := &Job{}
	switch t := transformation.(type) {
	case *Transformation:
		if t == nil {
			return nil, errorf(KindInvalidArgument, "invalid transformation: nil")
		}
		j.Transformation, j.Namespace, j.Version = t.Name, t.Namespace, t.Version
	case string:
		if t == "" {
			return nil, errorf(KindInvalidArgument, "invalid transformation: empty name")
		}
		j.Transformation, j.Namespace, j.Version = t, o.namespace, o.version
	default:
		return nil, errorf(KindInvalidArgument, "invalid transformation: %v; transformation must be of type *Transformation or string", transformation)
	}
	j.id = o.id
	j.nodeLabel = o.nodeLabel
	return j, nil
}

// Document renders the job.
func (j *Job) Document() *Doc {
	d := NewDoc().Set("type", "job")
	if j.Namespace != "" {
		d.Set("namespace", j.Namespace)
	}
	if j.Version != "" {
		d.Set("version", j.Version)
	}
	d.Set("name", j.Transformation)
	j.fillDocument(d)
	return d
}

// SubWorkflow job types.
const (
	TypePlannedWorkflow   = "condorWorkflow"
	TypeUnplannedWorkflow = "pegasusWorkflow"
)

// SubWorkflow is a job that plans and runs a nested workflow document.
type SubWorkflow struct {
	JobBase

	File      *File
	IsPlanned bool
}

// NewSubWorkflow creates a sub-workflow job for the workflow document file,
// given as a *File or a file name. isPlanned marks an already planned
// DAG; otherwise the nested workflow is planned when the job runs. The
// document is added as an input of the job.
func NewSubWorkflow(file any, isPlanned bool, opts ...JobOption) (*SubWorkflow, error) {
	f, err := toFile(file, "file")
	if err != nil {
		return nil, err
	}
	var o jobOptions
	for _, opt := range opts {
		opt(&o)
	}
	sw := &SubWorkflow{File: f, IsPlanned: isPlanned}
	sw.id = o.id
	sw.nodeLabel = o.nodeLabel
	if err := sw.AddInputs(f); err != nil {
		return nil, err
	}
	return sw, nil
}

// Type returns the on-wire job type.
func (s *SubWorkflow) Type() string {
	if s.IsPlanned {
		return TypePlannedWorkflow
	}
	return TypeUnplannedWorkflow
}

// Document renders the sub-workflow job.
func (s *SubWorkflow) Document() *Doc {
	d := NewDoc().Set("type", s.Type()).Set("file", s.File.LFN)
	s.fillDocument(d)
	return d
}
