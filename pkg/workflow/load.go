package workflow

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/workflow.json
var documentSchema []byte

// SupportedVersions is the range of format versions Load accepts.
const SupportedVersions = ">= 5.0, < 6.0"

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error

	versionConstraint = mustConstraint(SupportedVersions)
)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchema))
	})
	return compiledSchema, schemaErr
}

// LoadFile reads a workflow document from path.
func LoadFile(path string, opts ...Option) (*Workflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	wf, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return wf, nil
}

// Load reads a YAML or JSON workflow document, validates it and rebuilds
// the Workflow. Job ids and dependencies are kept as written; embedded
// catalogs are kept as RawCatalog values.
func Load(r io.Reader, opts ...Option) (*Workflow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	d := NewDoc()
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, errorf(KindInvalidArgument, "parse document: %v", err)
	}
	if err := ValidateDoc(d); err != nil {
		return nil, err
	}
	return fromDoc(d, opts...)
}

// ValidateDoc checks d against the document schema and the supported
// format versions.
func ValidateDoc(d *Doc) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	raw, err := d.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errorf(KindInvalidArgument, "validate document: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return errorf(KindInvalidArgument, "invalid document: %s", strings.Join(msgs, "; "))
	}

	tag, _ := d.Get(FormatKey)
	version, err := semver.NewVersion(tag.(string))
	if err != nil {
		return errorf(KindInvalidArgument, "invalid format version %q: %v", tag, err)
	}
	if !versionConstraint.Check(version) {
		return errorf(KindInvalidArgument, "unsupported format version %s; supported versions are %s", tag, SupportedVersions)
	}
	return nil
}

func fromDoc(d *Doc, opts ...Option) (*Workflow, error) {
	w, err := New(stringField(d, "name"), opts...)
	if err != nil {
		return nil, err
	}
	if err := loadAttributes(&w.Attributes, d); err != nil {
		return nil, err
	}
	for key, slot := range map[string]*Catalog{
		"siteCatalog":           &w.siteCatalog,
		"replicaCatalog":        &w.replicaCatalog,
		"transformationCatalog": &w.transformationCatalog,
	} {
		if body, ok := docField(d, key); ok {
			*slot = &RawCatalog{body: body}
		}
	}

	for i, item := range listField(d, "jobs") {
		jd, ok := item.(*Doc)
		if !ok {
			return nil, errorf(KindInvalidArgument, "jobs[%d]: expected a mapping", i)
		}
		job, err := loadJob(jd)
		if err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if err := w.AddJobs(job); err != nil {
			return nil, err
		}
	}

	for i, item := range listField(d, "jobDependencies") {
		dd, ok := item.(*Doc)
		if !ok {
			return nil, errorf(KindInvalidArgument, "jobDependencies[%d]: expected a mapping", i)
		}
		parent := stringField(dd, "id")
		if _, ok := w.jobs[parent]; !ok {
			return nil, errorf(KindNotFound, "jobDependencies[%d]: parent job %s not found in this workflow", i, parent)
		}
		for _, c := range listField(dd, "children") {
			child, _ := c.(string)
			if _, ok := w.jobs[child]; !ok {
				return nil, errorf(KindNotFound, "jobDependencies[%d]: child job %s not found in this workflow", i, child)
			}
			if !w.addEdge(parent, child) {
				return nil, errorf(KindDuplicate, "a dependency already exists between parent id %s and child id %s", parent, child)
			}
		}
	}
	w.logger.Debug("workflow loaded", "jobs", len(w.jobOrder), "dependencies", len(w.depOrder))
	return w, nil
}

func loadJob(jd *Doc) (AbstractJob, error) {
	var (
		job AbstractJob
		b   *JobBase
		sub *SubWorkflow
	)
	switch typ := stringField(jd, "type"); typ {
	case "job":
		name := stringField(jd, "name")
		if name == "" {
			return nil, errorf(KindInvalidArgument, "job of type job requires a transformation name")
		}
		j := &Job{Transformation: name, Namespace: stringField(jd, "namespace"), Version: stringField(jd, "version")}
		job, b = j, &j.JobBase
	case TypePlannedWorkflow, TypeUnplannedWorkflow:
		sub = &SubWorkflow{IsPlanned: typ == TypePlannedWorkflow}
		job, b = sub, &sub.JobBase
	default:
		return nil, errorf(KindInvalidArgument, "invalid job type: %q", typ)
	}
	b.id = stringField(jd, "id")
	b.nodeLabel = stringField(jd, "nodeLabel")

	files := make(map[string]*File)
	for i, item := range listField(jd, "uses") {
		ud, ok := item.(*Doc)
		if !ok {
			return nil, errorf(KindInvalidArgument, "uses[%d]: expected a mapping", i)
		}
		u, err := loadUse(ud)
		if err != nil {
			return nil, fmt.Errorf("uses[%d]: %w", i, err)
		}
		if err := b.uses.add(u); err != nil {
			return nil, err
		}
		files[u.File.LFN] = u.File
	}

	stdio := []struct {
		key  string
		dst  **File
		want LinkType
	}{
		{"stdin", &b.stdin, LinkInput},
		{"stdout", &b.stdout, LinkOutput},
		{"stderr", &b.stderr, LinkOutput},
	}
	for _, s := range stdio {
		lfn := stringField(jd, s.key)
		if lfn == "" {
			continue
		}
		f, ok := files[lfn]
		if !ok || b.uses.byName[lfn].Type != s.want {
			return nil, errorf(KindInvalidArgument, "%s %s must also be listed as an %s use", s.key, lfn, s.want)
		}
		*s.dst = f
	}
	if sub != nil {
		lfn := stringField(jd, "file")
		f, ok := files[lfn]
		if !ok {
			return nil, errorf(KindInvalidArgument, "sub-workflow file %q must also be listed as an input use", lfn)
		}
		sub.File = f
	}

	b.args = append(b.args, listField(jd, "arguments")...)
	if err := loadAttributes(&b.Attributes, jd); err != nil {
		return nil, err
	}
	return job, nil
}

func loadUse(ud *Doc) (*Use, error) {
	t, err := ParseLinkType(stringField(ud, "type"))
	if err != nil {
		return nil, err
	}
	f := NewFile(stringField(ud, "lfn"))
	if v, ok := ud.Get("size"); ok {
		n, ok := toInt64(v)
		if !ok {
			return nil, errorf(KindInvalidArgument, "invalid size for %s: %v", f.LFN, v)
		}
		f.Size = &n
	}
	if md, ok := docField(ud, "metadata"); ok {
		f.metadata = md
	}
	bypass, _ := boolField(ud, "bypass")
	stageOut, _ := boolField(ud, "stageOut")
	register, _ := boolField(ud, "registerReplica")
	return newUse(f, t, stageOut, register, bypass != nil && *bypass)
}

func loadAttributes(a *Attributes, d *Doc) error {
	if profiles, ok := docField(d, "profiles"); ok {
		for _, ns := range profiles.Keys() {
			if !Namespace(ns).Valid() {
				return errorf(KindInvalidArgument, "invalid namespace: %q", ns)
			}
			entries, _ := docField(profiles, ns)
			for _, k := range entries.Keys() {
				v, _ := entries.Get(k)
				a.setProfile(Namespace(ns), k, v)
			}
		}
	}
	if md, ok := docField(d, "metadata"); ok {
		a.metadata = md
	}
	if hooks, ok := docField(d, "hooks"); ok {
		for _, item := range listField(hooks, "shell") {
			hd, _ := item.(*Doc)
			h, err := NewShellHook(EventType(stringField(hd, "_on")), stringField(hd, "cmd"))
			if err != nil {
				return err
			}
			a.addHook(h)
		}
	}
	return nil
}

func stringField(d *Doc, k string) string {
	v, _ := d.Get(k)
	s, _ := v.(string)
	return s
}

func docField(d *Doc, k string) (*Doc, bool) {
	v, ok := d.Get(k)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Doc)
	return sub, ok
}

func listField(d *Doc, k string) []any {
	v, _ := d.Get(k)
	l, _ := v.([]any)
	return l
}

func boolField(d *Doc, k string) (*bool, bool) {
	v, ok := d.Get(k)
	if !ok {
		return nil, false
	}
	b, ok := v.(bool)
	if !ok {
		return nil, false
	}
	return &b, true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
