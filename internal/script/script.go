// Package script builds workflows from JavaScript using goja.
//
// A script is evaluated in a fresh runtime with these globals:
//
//	workflow(name, infer?)                   new workflow
//	file(lfn, size?)                         logical file
//	job(transformation, {id, label, namespace, version}?)
//	subworkflow(file, planned, {id, label}?)
//	transformation(name, {namespace, version}?)
//	Namespace, Event                         profile namespaces and hook events
//
// Methods use lowerCamel names (addInputs, addArgs, addDependency, ...) and
// return their receiver, so calls chain. Errors are thrown as exceptions.
// The script's completion value must be the workflow.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/me/wfkit/pkg/workflow"
)

// Runner evaluates workflow scripts.
type Runner struct {
	logger *slog.Logger
}

// New creates a Runner. Workflows built by scripts log through logger.
func New(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// RunFile evaluates the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) (*workflow.Workflow, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return r.Run(ctx, path, string(src))
}

// Run evaluates src and returns the workflow it evaluates to. name is used
// in error positions.
func (r *Runner) Run(ctx context.Context, name, src string) (*workflow.Workflow, error) {
	vm, err := r.setupVM()
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	prog, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	val, err := vm.RunProgram(prog)
	if err != nil {
		return nil, scriptError(name, err)
	}

	var wf *jsWorkflow
	if val != nil {
		wf, _ = val.Export().(*jsWorkflow)
	}
	if wf == nil {
		return nil, fmt.Errorf("%s: script must evaluate to a workflow, got %s", name, describe(val))
	}
	r.logger.Debug("script evaluated", "script", name, "workflow", wf.w.Name(), "jobs", len(wf.w.Jobs()))
	return wf.w, nil
}

// scriptError keeps the workflow error kind of a thrown Go error reachable
// with errors.Is and errors.As.
func scriptError(name string, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return fmt.Errorf("%s: %w", name, cause)
		}
	}
	var werr *workflow.Error
	if errors.As(err, &werr) {
		return fmt.Errorf("%s: %w", name, werr)
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return fmt.Errorf("%s: %s", name, strings.TrimPrefix(ex.Error(), "GoError: "))
	}
	return fmt.Errorf("%s: %w", name, err)
}

func describe(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	return fmt.Sprintf("%T", v.Export())
}

func (r *Runner) setupVM() (*goja.Runtime, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("js", true))

	globals := map[string]any{
		"workflow":       r.newWorkflow(vm),
		"file":           newFile(vm),
		"job":            newJob(vm),
		"subworkflow":    newSubWorkflow(vm),
		"transformation": newTransformation,
		"Namespace":      namespaceEnum(),
		"Event":          eventEnum(),
	}
	for name, v := range globals {
		if err := vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
	}
	return vm, nil
}

func (r *Runner) newWorkflow(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		infer := true
		if arg := call.Argument(1); !goja.IsUndefined(arg) {
			infer = arg.ToBoolean()
		}
		w, err := workflow.New(call.Argument(0).String(),
			workflow.WithInferDependencies(infer),
			workflow.WithLogger(r.logger),
		)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(&jsWorkflow{w: w})
	}
}

func newFile(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		lfn := call.Argument(0)
		if goja.IsUndefined(lfn) || goja.IsNull(lfn) || lfn.String() == "" {
			panic(vm.NewGoError(invalidArgument("invalid file: empty name")))
		}
		f := workflow.NewFile(lfn.String())
		if size := call.Argument(1); !goja.IsUndefined(size) && !goja.IsNull(size) {
			f.WithSize(size.ToInteger())
		}
		return vm.ToValue(&jsFile{f: f})
	}
}

type jobOptions struct {
	id, label, namespace, version string
}

func (o jobOptions) options() []workflow.JobOption {
	var opts []workflow.JobOption
	if o.id != "" {
		opts = append(opts, workflow.WithID(o.id))
	}
	if o.label != "" {
		opts = append(opts, workflow.WithNodeLabel(o.label))
	}
	if o.namespace != "" {
		opts = append(opts, workflow.WithNamespace(o.namespace))
	}
	if o.version != "" {
		opts = append(opts, workflow.WithVersion(o.version))
	}
	return opts
}

func exportOptions(vm *goja.Runtime, v goja.Value) jobOptions {
	var o jobOptions
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return o
	}
	m, ok := v.Export().(map[string]any)
	if !ok {
		panic(vm.NewGoError(invalidArgument("invalid options: %v; options must be an object", v)))
	}
	for key, dst := range map[string]*string{"id": &o.id, "label": &o.label, "namespace": &o.namespace, "version": &o.version} {
		if raw, ok := m[key]; ok && raw != nil {
			*dst = fmt.Sprint(raw)
		}
	}
	return o
}

func newJob(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var transformation any = call.Argument(0).Export()
		if t, ok := transformation.(*jsTransformation); ok {
			transformation = t.t
		}
		opts := exportOptions(vm, call.Argument(1))
		j, err := workflow.NewJob(transformation, opts.options()...)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(wrapJob(j))
	}
}

func newSubWorkflow(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		f, err := promoteFile(call.Argument(0).Export())
		if err != nil {
			panic(vm.NewGoError(err))
		}
		opts := exportOptions(vm, call.Argument(2))
		sw, err := workflow.NewSubWorkflow(f, call.Argument(1).ToBoolean(), opts.options()...)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(wrapJob(sw))
	}
}

func newTransformation(name string, opts map[string]any) (*jsTransformation, error) {
	if name == "" {
		return nil, invalidArgument("invalid transformation: empty name")
	}
	t := &workflow.Transformation{Name: name}
	if ns, ok := opts["namespace"].(string); ok {
		t.Namespace = ns
	}
	if v, ok := opts["version"].(string); ok {
		t.Version = v
	}
	return &jsTransformation{t: t}, nil
}

func namespaceEnum() map[string]any {
	m := make(map[string]any, len(workflow.Namespaces))
	for _, ns := range workflow.Namespaces {
		m[strings.ToUpper(string(ns))] = string(ns)
	}
	return m
}

func eventEnum() map[string]any {
	events := []workflow.EventType{
		workflow.EventNever, workflow.EventStart, workflow.EventError,
		workflow.EventSuccess, workflow.EventEnd, workflow.EventAll,
	}
	m := make(map[string]any, len(events))
	for _, e := range events {
		m[strings.ToUpper(string(e))] = string(e)
	}
	return m
}
