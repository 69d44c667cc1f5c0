package script

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/wfkit/pkg/workflow"
)

func newTestRunner() *Runner {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const diamondScript = `
var fa = file("f.a", 1024);
var fb1 = file("f.b1"), fb2 = file("f.b2");
var fc1 = file("f.c1"), fc2 = file("f.c2");
var fd = file("f.d");

var wf = workflow("diamond");
var preprocess = job("preprocess", {label: "pre", namespace: "diamond", version: "4.0"})
	.addArgs("-a", "preprocess", "-i", fa, "-o", fb1, fb2)
	.addInputs(fa)
	.addOutputs(fb1, fb2)
	.addPegasusProfiles({clusters_num: 2});
var left = job("findrange", {id: "left"}).addInputs(fb1).addOutputs(fc1);
var right = job("findrange", {id: "right"}).addInputs(fb2).addOutputs(fc2);
var analyze = job("analyze")
	.addInputs(fc1, fc2)
	.addOutputs(fd)
	.addShellHook(Event.END, "/bin/notify")
	.addProfiles(Namespace.ENV, {APP_HOME: "/opt/app"});

wf.addJobs(preprocess, left, right, analyze)
	.addMetadata({author: "alice"});
wf;
`

func TestRun_Diamond(t *testing.T) {
	wf, err := newTestRunner().Run(context.Background(), "diamond.js", diamondScript)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if wf.Name() != "diamond" {
		t.Errorf("Name = %q", wf.Name())
	}

	jobs := wf.Jobs()
	if len(jobs) != 4 {
		t.Fatalf("jobs = %d, want 4", len(jobs))
	}
	wantIDs := []string{"ID0000001", "left", "right", "ID0000002"}
	for i, j := range jobs {
		if j.ID() != wantIDs[i] {
			t.Errorf("job %d id = %q, want %q", i, j.ID(), wantIDs[i])
		}
	}

	pre, ok := jobs[0].(*workflow.Job)
	if !ok {
		t.Fatalf("job 0 is %T", jobs[0])
	}
	if pre.Namespace != "diamond" || pre.Version != "4.0" || pre.NodeLabel() != "pre" {
		t.Errorf("preprocess = %+v", pre)
	}
	args := pre.Args()
	if len(args) != 7 {
		t.Fatalf("args = %v", args)
	}
	if f, ok := args[3].(*workflow.File); !ok || f.LFN != "f.a" {
		t.Errorf("args[3] = %#v, want *File f.a", args[3])
	}
	if f := pre.Inputs()[0]; f.Size == nil || *f.Size != 1024 {
		t.Errorf("input size = %v, want 1024", f.Size)
	}
	if v, ok := pre.Profile(workflow.NamespacePegasus, "clusters.num"); !ok || v != int64(2) {
		t.Errorf("clusters.num = %v (%T)", v, v)
	}

	doc, err := wf.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	deps, _ := doc.Get("jobDependencies")
	if n := len(deps.([]any)); n != 3 {
		t.Errorf("inferred dependency records = %d, want 3", n)
	}
}

func TestRun_ExplicitDependencies(t *testing.T) {
	src := `
var wf = workflow("explicit", false);
var a = job("a"), b = job("b"), c = job("c");
wf.addJobs(a, b, c)
	.addDependency(a, {children: [b, c]})
	.addDependency(c, {parents: b});
wf`
	wf, err := newTestRunner().Run(context.Background(), "explicit.js", src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if wf.InfersDependencies() {
		t.Error("inference should be off")
	}
	deps := wf.Dependencies()
	if len(deps) != 2 {
		t.Fatalf("dependency records = %d, want 2", len(deps))
	}
	if deps[0].ParentID != "ID0000001" || strings.Join(deps[0].Children(), ",") != "ID0000002,ID0000003" {
		t.Errorf("deps[0] = %s -> %v", deps[0].ParentID, deps[0].Children())
	}
}

func TestRun_SubWorkflowAndCatalogs(t *testing.T) {
	src := `
var wf = workflow("outer");
var t = transformation("keg", {namespace: "tools", version: "1.0"}).addSite("local", "/usr/bin/keg", "");
var inner = subworkflow("inner.yml", false, {id: "inner"});
var out = file("out.txt");
var k = job(t).addOutputs(out);
wf.addJobs(k, inner)
	.addTransformations(t)
	.addReplica("local", file("in.txt"), "file:///data/in.txt");
wf.getJob("inner").addInputs(out);
wf`
	wf, err := newTestRunner().Run(context.Background(), "outer.js", src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sw, ok := wf.Jobs()[1].(*workflow.SubWorkflow)
	if !ok {
		t.Fatalf("job 1 is %T", wf.Jobs()[1])
	}
	if sw.Type() != workflow.TypeUnplannedWorkflow || sw.File.LFN != "inner.yml" {
		t.Errorf("subworkflow = %+v", sw)
	}
	if k := wf.Jobs()[0].(*workflow.Job); k.Namespace != "tools" || k.Transformation != "keg" {
		t.Errorf("job = %+v", k)
	}
	if wf.TransformationCatalog() == nil || wf.ReplicaCatalog() == nil {
		t.Error("catalogs not embedded")
	}

	// A sub-workflow next to an embedded transformation catalog cannot be
	// rendered.
	if _, err := wf.Document(); !errors.Is(err, workflow.ErrConfiguration) {
		t.Errorf("Document error = %v, want configuration error", err)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		kind    workflow.Kind
		wantMsg string
	}{
		{
			name:    "bad workflow name",
			src:     `workflow("a b")`,
			kind:    workflow.KindInvalidArgument,
			wantMsg: "invalid workflow name",
		},
		{
			name:    "duplicate stdout",
			src:     `var j = job("ls").setStdout("out"); j.setStdout("out2"); workflow("w")`,
			kind:    workflow.KindDuplicate,
			wantMsg: "stdout",
		},
		{
			name:    "unknown namespace",
			src:     `job("ls").addProfiles("bogus", {a: 1}); workflow("w")`,
			kind:    workflow.KindInvalidArgument,
			wantMsg: "bogus",
		},
		{
			name:    "missing job",
			src:     `workflow("w").getJob("nope")`,
			kind:    workflow.KindNotFound,
			wantMsg: "nope",
		},
		{
			name:    "duplicate job id",
			src:     `workflow("w").addJobs(job("a", {id: "x"}), job("b", {id: "x"}))`,
			kind:    workflow.KindDuplicate,
			wantMsg: "x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestRunner().Run(context.Background(), "bad.js", tt.src)
			if err == nil {
				t.Fatal("Run: no error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
			if k := workflow.KindOf(err); k != "" && k != tt.kind {
				t.Errorf("kind = %s, want %s", k, tt.kind)
			}
		})
	}
}

func TestRun_FileArgumentsMustBeFiles(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"input name", `job("ls").addInputs("raw.txt"); workflow("w")`},
		{"bypass input name", `job("ls").addBypassInputs("raw.txt"); workflow("w")`},
		{"output name", `job("ls").addOutputs("out.txt"); workflow("w")`},
		{"staged output name", `job("ls").addOutputsStaged(false, true, "out.txt"); workflow("w")`},
		{"checkpoint name", `job("ls").addCheckpoint("ck", true, true); workflow("w")`},
		{"number", `job("ls").addInputs(42); workflow("w")`},
		{"mixed", `job("ls").addInputs(file("a"), "b"); workflow("w")`},
		{"dependency on a name", `var w = workflow("w"); var a = job("ls"); w.addJobs(a); w.addDependency(a, {children: ["b"]}); w`},
		{"empty stdout name", `job("ls").setStdout(""); workflow("w")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestRunner().Run(context.Background(), "files.js", tt.src)
			if !errors.Is(err, workflow.ErrInvalidArgument) {
				t.Errorf("error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}

func TestRun_NamesPromotedForStdioAndReplicas(t *testing.T) {
	src := `
var wf = workflow("stdio");
var j = job("ls").setStdin("in.txt").setStdoutStaged("out.txt", false, false).setStderr("err.txt");
wf.addJobs(j).addReplica("local", "in.txt", "file:///data/in.txt");
wf`
	wf, err := newTestRunner().Run(context.Background(), "stdio.js", src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	j := wf.Jobs()[0].(*workflow.Job)
	if j.Stdin().LFN != "in.txt" || j.Stdout().LFN != "out.txt" || j.Stderr().LFN != "err.txt" {
		t.Errorf("stdio = %v %v %v", j.Stdin(), j.Stdout(), j.Stderr())
	}
	if n := len(j.Uses()); n != 3 {
		t.Errorf("len(uses) = %d, want 3", n)
	}
	for _, u := range j.Uses() {
		if u.File.LFN == "out.txt" && (u.StageOut == nil || *u.StageOut) {
			t.Errorf("stdout use = %+v, want stageOut false", u)
		}
	}
	if wf.ReplicaCatalog() == nil {
		t.Error("replica catalog not embedded")
	}
}

func TestRun_NotAWorkflow(t *testing.T) {
	tests := []string{``, `42`, `job("ls")`, `null`}
	for _, src := range tests {
		_, err := newTestRunner().Run(context.Background(), "x.js", src)
		if err == nil || !strings.Contains(err.Error(), "must evaluate to a workflow") {
			t.Errorf("Run(%q) error = %v", src, err)
		}
	}
}

func TestRun_SyntaxError(t *testing.T) {
	if _, err := newTestRunner().Run(context.Background(), "x.js", `workflow("w"`); err == nil {
		t.Error("Run: no error for syntax error")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestRunner().Run(ctx, "loop.js", `for (;;) {}`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diamond.js")
	if err := os.WriteFile(path, []byte(diamondScript), 0o644); err != nil {
		t.Fatal(err)
	}
	wf, err := newTestRunner().RunFile(context.Background(), path)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if len(wf.Jobs()) != 4 {
		t.Errorf("jobs = %d, want 4", len(wf.Jobs()))
	}
	if _, err := newTestRunner().RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.js")); err == nil {
		t.Error("RunFile(missing): no error")
	}
}
