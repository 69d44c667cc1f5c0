package script

import (
	"fmt"

	"github.com/me/wfkit/pkg/workflow"
)

// The types below are what scripts see. Mutators return their receiver so
// that calls chain; a failing mutator throws.

type jsFile struct {
	f *workflow.File
}

func (f *jsFile) Lfn() string { return f.f.LFN }

func (f *jsFile) Size() any {
	if f.f.Size == nil {
		return nil
	}
	return *f.f.Size
}

func (f *jsFile) WithSize(n int64) *jsFile {
	f.f.WithSize(n)
	return f
}

func (f *jsFile) AddMetadata(kv map[string]any) (*jsFile, error) {
	return f, f.f.AddMetadata(kv)
}

func (f *jsFile) String() string { return f.f.LFN }

type jsTransformation struct {
	t *workflow.Transformation
}

func (t *jsTransformation) Name() string { return t.t.Name }

// AddSite records where the executable lives. kind defaults to installed.
func (t *jsTransformation) AddSite(site, pfn string, kind string) *jsTransformation {
	if kind == "" {
		kind = workflow.TransformationInstalled
	}
	t.t.Sites = append(t.t.Sites, workflow.TransformationSite{Name: site, PFN: pfn, Type: kind})
	return t
}

type jsJob struct {
	job  workflow.AbstractJob
	base *workflow.JobBase
}

func wrapJob(job workflow.AbstractJob) *jsJob {
	switch j := job.(type) {
	case *workflow.Job:
		return &jsJob{job: j, base: &j.JobBase}
	case *workflow.SubWorkflow:
		return &jsJob{job: j, base: &j.JobBase}
	}
	panic(fmt.Sprintf("script: unsupported job type %T", job))
}

func (j *jsJob) Id() string        { return j.base.ID() }
func (j *jsJob) NodeLabel() string { return j.base.NodeLabel() }

func (j *jsJob) AddInputs(files ...any) (*jsJob, error) {
	fs, err := toFiles(files)
	if err != nil {
		return j, err
	}
	return j, j.base.AddInputs(fs...)
}

func (j *jsJob) AddBypassInputs(files ...any) (*jsJob, error) {
	fs, err := toFiles(files)
	if err != nil {
		return j, err
	}
	return j, j.base.AddBypassInputs(fs...)
}

func (j *jsJob) AddOutputs(files ...any) (*jsJob, error) {
	fs, err := toFiles(files)
	if err != nil {
		return j, err
	}
	return j, j.base.AddOutputs(fs...)
}

func (j *jsJob) AddOutputsStaged(stageOut, registerReplica bool, files ...any) (*jsJob, error) {
	fs, err := toFiles(files)
	if err != nil {
		return j, err
	}
	return j, j.base.AddOutputsStaged(stageOut, registerReplica, fs...)
}

func (j *jsJob) AddCheckpoint(file any, stageOut, registerReplica bool) (*jsJob, error) {
	f, err := toFile(file)
	if err != nil {
		return j, err
	}
	return j, j.base.AddCheckpoint(f, stageOut, registerReplica)
}

func (j *jsJob) AddArgs(args ...any) (*jsJob, error) {
	out := make([]any, len(args))
	for i, a := range args {
		if f, ok := a.(*jsFile); ok {
			out[i] = f.f
			continue
		}
		out[i] = a
	}
	return j, j.base.AddArgs(out...)
}

func (j *jsJob) SetStdin(file any) (*jsJob, error) {
	f, err := promoteFile(file)
	if err != nil {
		return j, err
	}
	return j, j.base.SetStdin(f)
}

func (j *jsJob) SetStdout(file any) (*jsJob, error) {
	f, err := promoteFile(file)
	if err != nil {
		return j, err
	}
	return j, j.base.SetStdout(f)
}

func (j *jsJob) SetStderr(file any) (*jsJob, error) {
	f, err := promoteFile(file)
	if err != nil {
		return j, err
	}
	return j, j.base.SetStderr(f)
}

func (j *jsJob) SetStdoutStaged(file any, stageOut, registerReplica bool) (*jsJob, error) {
	f, err := promoteFile(file)
	if err != nil {
		return j, err
	}
	return j, j.base.SetStdoutStaged(f, stageOut, registerReplica)
}

func (j *jsJob) SetStderrStaged(file any, stageOut, registerReplica bool) (*jsJob, error) {
	f, err := promoteFile(file)
	if err != nil {
		return j, err
	}
	return j, j.base.SetStderrStaged(f, stageOut, registerReplica)
}

func (j *jsJob) AddProfiles(ns string, kv map[string]any) (*jsJob, error) {
	return j, j.base.AddProfiles(workflow.Namespace(ns), kv)
}

func (j *jsJob) AddEnv(vars map[string]string) (*jsJob, error) {
	return j, j.base.AddEnv(vars)
}

func (j *jsJob) AddPegasusProfiles(params map[string]any) (*jsJob, error) {
	return j, j.base.AddPegasusProfiles(params)
}

func (j *jsJob) AddCondorProfiles(params map[string]any) (*jsJob, error) {
	return j, j.base.AddCondorProfiles(params)
}

func (j *jsJob) AddDagmanProfiles(params map[string]any) (*jsJob, error) {
	return j, j.base.AddDagmanProfiles(params)
}

func (j *jsJob) AddGlobusProfiles(params map[string]any) (*jsJob, error) {
	return j, j.base.AddGlobusProfiles(params)
}

func (j *jsJob) AddSelectorProfiles(params map[string]any) (*jsJob, error) {
	return j, j.base.AddSelectorProfiles(params)
}

func (j *jsJob) AddMetadata(kv map[string]any) (*jsJob, error) {
	return j, j.base.AddMetadata(kv)
}

func (j *jsJob) AddShellHook(on, cmd string) (*jsJob, error) {
	return j, j.base.AddShellHook(workflow.EventType(on), cmd)
}

type jsWorkflow struct {
	w  *workflow.Workflow
	tc *workflow.TransformationCatalog
	rc *workflow.ReplicaCatalog
}

func (w *jsWorkflow) Name() string { return w.w.Name() }

func (w *jsWorkflow) AddJobs(jobs ...*jsJob) (*jsWorkflow, error) {
	for _, j := range jobs {
		if j == nil {
			return w, invalidArgument("addJobs: argument is not a job")
		}
		if err := w.w.AddJobs(j.job); err != nil {
			return w, err
		}
	}
	return w, nil
}

func (w *jsWorkflow) GetJob(id string) (*jsJob, error) {
	job, err := w.w.GetJob(id)
	if err != nil {
		return nil, err
	}
	return wrapJob(job), nil
}

// AddDependency accepts {parents: [...], children: [...]}.
func (w *jsWorkflow) AddDependency(job *jsJob, rel map[string]any) (*jsWorkflow, error) {
	if job == nil {
		return w, invalidArgument("addDependency: argument is not a job")
	}
	parents, err := toJobs(rel["parents"])
	if err != nil {
		return w, err
	}
	children, err := toJobs(rel["children"])
	if err != nil {
		return w, err
	}
	return w, w.w.AddDependency(job.job, parents, children)
}

func (w *jsWorkflow) InferDependencies() *jsWorkflow {
	w.w.InferDependencies()
	return w
}

// AddTransformations adds entries to the embedded transformation catalog,
// creating it on first use.
func (w *jsWorkflow) AddTransformations(ts ...*jsTransformation) (*jsWorkflow, error) {
	if w.tc == nil {
		tc := workflow.NewTransformationCatalog()
		if err := w.w.AddTransformationCatalog(tc); err != nil {
			return w, err
		}
		w.tc = tc
	}
	for _, t := range ts {
		if t == nil {
			return w, invalidArgument("addTransformations: argument is not a transformation")
		}
		if err := w.tc.AddTransformations(t.t); err != nil {
			return w, err
		}
	}
	return w, nil
}

// AddReplica adds an entry to the embedded replica catalog, creating it on
// first use.
func (w *jsWorkflow) AddReplica(site string, lfn any, pfn string) (*jsWorkflow, error) {
	if w.rc == nil {
		rc := workflow.NewReplicaCatalog()
		if err := w.w.AddReplicaCatalog(rc); err != nil {
			return w, err
		}
		w.rc = rc
	}
	f, err := promoteFile(lfn)
	if err != nil {
		return w, err
	}
	return w, w.rc.AddReplica(site, f, pfn)
}

func (w *jsWorkflow) AddProfiles(ns string, kv map[string]any) (*jsWorkflow, error) {
	return w, w.w.AddProfiles(workflow.Namespace(ns), kv)
}

func (w *jsWorkflow) AddEnv(vars map[string]string) (*jsWorkflow, error) {
	return w, w.w.AddEnv(vars)
}

func (w *jsWorkflow) AddMetadata(kv map[string]any) (*jsWorkflow, error) {
	return w, w.w.AddMetadata(kv)
}

func (w *jsWorkflow) AddShellHook(on, cmd string) (*jsWorkflow, error) {
	return w, w.w.AddShellHook(workflow.EventType(on), cmd)
}

func invalidArgument(format string, args ...any) error {
	return &workflow.Error{Kind: workflow.KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// toFile accepts only values made by file().
func toFile(v any) (*workflow.File, error) {
	if f, ok := v.(*jsFile); ok && f != nil {
		return f.f, nil
	}
	return nil, invalidArgument("invalid file: %v; expected a file made with file()", v)
}

// promoteFile also accepts a bare name. Only stdio, sub-workflow files and
// replicas take names.
func promoteFile(v any) (*workflow.File, error) {
	if name, ok := v.(string); ok {
		if name == "" {
			return nil, invalidArgument("invalid file: empty name")
		}
		return workflow.NewFile(name), nil
	}
	return toFile(v)
}

func toFiles(vs []any) ([]*workflow.File, error) {
	out := make([]*workflow.File, 0, len(vs))
	for _, v := range vs {
		f, err := toFile(v)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func toJobs(v any) ([]workflow.AbstractJob, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]workflow.AbstractJob, 0, len(list))
	for _, item := range list {
		j, ok := item.(*jsJob)
		if !ok || j == nil {
			return nil, invalidArgument("invalid job: %v; expected a job made with job() or subworkflow()", item)
		}
		out = append(out, j.job)
	}
	return out, nil
}
