// Package workflow builds abstract workflow graphs: jobs connected by the
// files they consume and produce, plus explicit dependencies. A finished
// Workflow renders to the canonical YAML or JSON document consumed by the
// planner.
//
// Files and jobs are built standalone and then admitted into exactly one
// Workflow with AddJobs, which assigns ids. Dependencies are either declared
// with AddDependency or inferred from producer/consumer relations when the
// document is rendered.
//
// A Workflow is not safe for concurrent use.
package workflow

import (
	"fmt"
	"log/slog"
	"strings"
)

// Format version written under FormatKey at the top of every document.
const (
	FormatKey     = "pegasus"
	FormatVersion = "5.0"
)

// JobDependency is the set of children of one parent job.
type JobDependency struct {
	ParentID string
	children []string
	seen     map[string]bool
}

// Children returns the child ids in the order they were added.
func (d *JobDependency) Children() []string {
	out := make([]string, len(d.children))
	copy(out, d.children)
	return out
}

// Document renders the dependency as {"id": parent, "children": [...]}.
func (d *JobDependency) Document() *Doc {
	children := make([]any, 0, len(d.children))
	for _, c := range d.children {
		children = append(children, c)
	}
	return NewDoc().Set("id", d.ParentID).Set("children", children)
}

// Workflow is the job graph.
type Workflow struct {
	Attributes

	name   string
	infer  bool
	logger *slog.Logger

	sequence int
	jobs     map[string]AbstractJob
	jobOrder []string

	deps     map[string]*JobDependency
	depOrder []string

	siteCatalog           Catalog
	replicaCatalog        Catalog
	transformationCatalog Catalog

	// Set by WriteFile and Plan.
	path      string
	submitDir string
	braindump *Braindump
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithInferDependencies turns dependency inference on or off. It is on by
// default.
func WithInferDependencies(infer bool) Option {
	return func(w *Workflow) { w.infer = infer }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// New creates an empty workflow. The name may not contain '/' or spaces.
func New(name string, opts ...Option) (*Workflow, error) {
	if name == "" || strings.ContainsAny(name, "/ ") {
		return nil, errorf(KindInvalidArgument, "invalid workflow name: %q; workflow name may not be empty or contain any / or spaces", name)
	}
	w := &Workflow{
		name:     name,
		infer:    true,
		logger:   slog.New(slog.DiscardHandler),
		sequence: 1,
		jobs:     make(map[string]AbstractJob),
		deps:     make(map[string]*JobDependency),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "workflow", "workflow", name)
	return w, nil
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// InfersDependencies reports whether dependencies are inferred on render.
func (w *Workflow) InfersDependencies() bool { return w.infer }

// AddJobs admits jobs into the workflow. A job without an id is given the
// next free id of the form ID0000001. Adding an id that is already present
// fails with a DUPLICATE error; jobs before it remain added.
func (w *Workflow) AddJobs(jobs ...AbstractJob) error {
	for _, job := range jobs {
		if job == nil {
			return errorf(KindInvalidArgument, "invalid job: nil")
		}
		b := job.base()
		if b.id == "" {
			b.id = w.nextJobID()
		}
		if _, ok := w.jobs[b.id]; ok {
			return errorf(KindDuplicate, "job with id %s already added to this workflow", b.id)
		}
		w.jobs[b.id] = job
		w.jobOrder = append(w.jobOrder, b.id)
	}
	return nil
}

// nextJobID draws from the sequence, skipping ids taken by jobs that
// arrived with an explicit id.
func (w *Workflow) nextJobID() string {
	for {
		id := fmt.Sprintf("ID%07d", w.sequence)
		w.sequence++
		if _, taken := w.jobs[id]; !taken {
			return id
		}
	}
}

// GetJob returns the job with the given id.
func (w *Workflow) GetJob(id string) (AbstractJob, error) {
	job, ok := w.jobs[id]
	if !ok {
		return nil, errorf(KindNotFound, "job with id %s not found in this workflow", id)
	}
	return job, nil
}

// Jobs returns the jobs in admission order.
func (w *Workflow) Jobs() []AbstractJob {
	out := make([]AbstractJob, 0, len(w.jobOrder))
	for _, id := range w.jobOrder {
		out = append(out, w.jobs[id])
	}
	return out
}

// AddSiteCatalog embeds a site catalog.
func (w *Workflow) AddSiteCatalog(sc *SiteCatalog) error {
	if sc == nil {
		return errorf(KindInvalidArgument, "invalid catalog: nil; sc must be a *SiteCatalog")
	}
	return w.setCatalog(&w.siteCatalog, sc, "SiteCatalog")
}

// AddReplicaCatalog embeds a replica catalog.
func (w *Workflow) AddReplicaCatalog(rc *ReplicaCatalog) error {
	if rc == nil {
		return errorf(KindInvalidArgument, "invalid catalog: nil; rc must be a *ReplicaCatalog")
	}
	return w.setCatalog(&w.replicaCatalog, rc, "ReplicaCatalog")
}

// AddTransformationCatalog embeds a transformation catalog.
func (w *Workflow) AddTransformationCatalog(tc *TransformationCatalog) error {
	if tc == nil {
		return errorf(KindInvalidArgument, "invalid catalog: nil; tc must be a *TransformationCatalog")
	}
	return w.setCatalog(&w.transformationCatalog, tc, "TransformationCatalog")
}

func (w *Workflow) setCatalog(slot *Catalog, c Catalog, kind string) error {
	if *slot != nil {
		return errorf(KindDuplicate, "a %s has already been added to this workflow", kind)
	}
	*slot = c
	return nil
}

// SiteCatalog returns the embedded site catalog, if any.
func (w *Workflow) SiteCatalog() Catalog { return w.siteCatalog }

// ReplicaCatalog returns the embedded replica catalog, if any.
func (w *Workflow) ReplicaCatalog() Catalog { return w.replicaCatalog }

// TransformationCatalog returns the embedded transformation catalog, if any.
func (w *Workflow) TransformationCatalog() Catalog { return w.transformationCatalog }

// AddDependency declares that job runs after every parent and before every
// child. All jobs must already have ids. Declaring an existing edge fails
// with a DUPLICATE error and leaves the graph unchanged.
func (w *Workflow) AddDependency(job AbstractJob, parents, children []AbstractJob) error {
	if job == nil || job.ID() == "" {
		return errorf(KindInvalidArgument, "the given job does not have an id; assign one on creation or add the job to this workflow before adding its dependencies")
	}
	for _, p := range parents {
		if p == nil || p.ID() == "" {
			return errorf(KindInvalidArgument, "one of the given parents does not have an id; assign one on creation or add the parent job to this workflow before adding its dependencies")
		}
	}
	for _, c := range children {
		if c == nil || c.ID() == "" {
			return errorf(KindInvalidArgument, "one of the given children does not have an id; assign one on creation or add the child job to this workflow before adding its dependencies")
		}
	}

	type edge struct{ parent, child string }
	edges := make([]edge, 0, len(parents)+len(children))
	for _, p := range parents {
		edges = append(edges, edge{p.ID(), job.ID()})
	}
	for _, c := range children {
		edges = append(edges, edge{job.ID(), c.ID()})
	}
	pending := make(map[edge]bool, len(edges))
	for _, e := range edges {
		if w.hasEdge(e.parent, e.child) || pending[e] {
			return errorf(KindDuplicate, "a dependency already exists between parent id %s and child id %s", e.parent, e.child)
		}
		pending[e] = true
	}
	for _, e := range edges {
		w.addEdge(e.parent, e.child)
	}
	return nil
}

func (w *Workflow) hasEdge(parent, child string) bool {
	d, ok := w.deps[parent]
	return ok && d.seen[child]
}

// addEdge inserts parent->child and reports whether it was new.
func (w *Workflow) addEdge(parent, child string) bool {
	d, ok := w.deps[parent]
	if !ok {
		d = &JobDependency{ParentID: parent, seen: make(map[string]bool)}
		w.deps[parent] = d
		w.depOrder = append(w.depOrder, parent)
	}
	if d.seen[child] {
		return false
	}
	d.seen[child] = true
	d.children = append(d.children, child)
	return true
}

// Dependencies returns the dependency records in the order their parents
// first gained a child.
func (w *Workflow) Dependencies() []*JobDependency {
	out := make([]*JobDependency, 0, len(w.depOrder))
	for _, id := range w.depOrder {
		out = append(out, w.deps[id])
	}
	return out
}

// InferDependencies adds an edge from the producer of every file to each
// of its consumers. Jobs are scanned in admission order and their uses in
// insertion order; checkpoint uses are ignored. When several jobs output
// the same file, the earliest admitted one is taken as its producer and
// the others get no inferred edges for that file. Edges that already exist
// are skipped, so the pass is idempotent.
func (w *Workflow) InferDependencies() {
	type fileIO struct {
		consumers []string
		producers []string
	}
	index := make(map[string]*fileIO)
	var files []string

	for _, id := range w.jobOrder {
		for _, u := range w.jobs[id].base().uses.list() {
			if u.Type == LinkCheckpoint {
				continue
			}
			io, ok := index[u.File.LFN]
			if !ok {
				io = &fileIO{}
				index[u.File.LFN] = io
				files = append(files, u.File.LFN)
			}
			switch u.Type {
			case LinkInput:
				io.consumers = append(io.consumers, id)
			case LinkOutput:
				io.producers = append(io.producers, id)
			}
		}
	}

	added := 0
	for _, lfn := range files {
		io := index[lfn]
		if len(io.producers) == 0 {
			continue
		}
		producer := io.producers[0]
		if len(io.producers) > 1 {
			w.logger.Debug("multiple producers", "lfn", lfn, "producers", io.producers, "chosen", producer)
		}
		for _, consumer := range io.consumers {
			if consumer == producer {
				continue
			}
			if w.addEdge(producer, consumer) {
				added++
			}
		}
	}
	w.logger.Debug("inferred dependencies", "files", len(files), "edges_added", added)
}
