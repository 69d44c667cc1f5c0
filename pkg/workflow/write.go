package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the document encoding.
type Format string

const (
	FormatYAML Format = "yml"
	FormatJSON Format = "json"
)

// ParseFormat accepts yml, yaml or json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "yml", "yaml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", errorf(KindInvalidArgument, "invalid format: %q; format must be one of [yml json]", s)
}

// FormatForPath picks JSON for *.json paths and YAML otherwise.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DefaultFilename is where Plan writes a workflow that was never written.
const DefaultFilename = "workflow.yml"

// Document validates the workflow, infers dependencies when enabled and
// returns the canonical document.
func (w *Workflow) Document() (*Doc, error) {
	if err := w.checkHierarchy(); err != nil {
		return nil, err
	}
	if w.infer {
		w.InferDependencies()
	}

	d := NewDoc().Set(FormatKey, FormatVersion).Set("name", w.name)
	profiles, metadata, hooks := w.attributeDocs()
	if hooks != nil {
		d.Set("hooks", hooks)
	}
	if profiles != nil {
		d.Set("profiles", profiles)
	}
	if metadata != nil {
		d.Set("metadata", metadata)
	}
	if w.siteCatalog != nil {
		d.Set("siteCatalog", embedded(w.siteCatalog))
	}
	if w.replicaCatalog != nil {
		d.Set("replicaCatalog", embedded(w.replicaCatalog))
	}
	if w.transformationCatalog != nil {
		d.Set("transformationCatalog", embedded(w.transformationCatalog))
	}

	jobs := make([]any, 0, len(w.jobOrder))
	for _, id := range w.jobOrder {
		jobs = append(jobs, w.jobs[id].Document())
	}
	d.Set("jobs", jobs)

	deps := make([]any, 0, len(w.depOrder))
	for _, dep := range w.Dependencies() {
		deps = append(deps, dep.Document())
	}
	d.Set("jobDependencies", deps)
	return d, nil
}

// checkHierarchy rejects sub-workflow jobs combined with an embedded site
// or transformation catalog; nested workflows must read those catalogs
// from separate files.
func (w *Workflow) checkHierarchy() error {
	if w.siteCatalog == nil && w.transformationCatalog == nil {
		return nil
	}
	for _, id := range w.jobOrder {
		if _, ok := w.jobs[id].(*SubWorkflow); ok {
			return errorf(KindConfiguration, "site catalog and transformation catalog must be written as separate files for hierarchical workflows")
		}
	}
	return nil
}

// Write renders the workflow to out.
func (w *Workflow) Write(out io.Writer, format Format) error {
	d, err := w.Document()
	if err != nil {
		return err
	}
	return EncodeDoc(out, d, format)
}

// WriteFile renders the workflow to path, choosing the format from the
// extension, and remembers path for Plan and Graph.
func (w *Workflow) WriteFile(path string) error {
	d, err := w.Document()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeDoc(f, d, FormatForPath(path)); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	w.path = path
	w.logger.Debug("workflow written", "path", path, "jobs", len(w.jobOrder), "dependencies", len(w.depOrder))
	return nil
}

// Path returns the file the workflow was last written to.
func (w *Workflow) Path() string { return w.path }

// EncodeDoc writes d as YAML or indented JSON.
func EncodeDoc(out io.Writer, d *Doc, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML, "":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errorf(KindInvalidArgument, "invalid format: %q", format)
	}
}
