package workflow

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// diamond builds the four-job diamond with every kind of attribute.
func diamond(t *testing.T) *Workflow {
	t.Helper()
	wf := mustWorkflow(t, "diamond")
	must(t, wf.AddShellHook(EventStart, "/bin/echo start"))
	must(t, wf.AddDagmanProfiles(map[string]any{"retry": 2}))
	must(t, wf.AddMetadata(map[string]any{"experiment": "diamond", "rev": 3}))

	rc := NewReplicaCatalog()
	must(t, rc.AddReplica("local", NewFile("f.a").WithSize(1024), "/data/f.a"))
	must(t, wf.AddReplicaCatalog(rc))

	fa := NewFile("f.a").WithSize(1024)
	must(t, fa.AddMetadata(map[string]any{"ratio": 2.5}))
	fb1, fb2 := NewFile("f.b1"), NewFile("f.b2")
	fc1, fc2 := NewFile("f.c1"), NewFile("f.c2")
	fd := NewFile("f.d")

	pre := mustJob(t, "preprocess", WithNamespace("pegasus"), WithVersion("4.0"), WithNodeLabel("pre"))
	must(t, pre.AddArgs("-a", "preprocess", "-T", 60, "-i", fa, "-o", fb1, fb2))
	must(t, pre.AddInputs(fa))
	must(t, pre.AddOutputsStaged(false, true, fb1, fb2))
	must(t, pre.AddEnv(map[string]string{"TMPDIR": "/scratch"}))

	left := mustJob(t, "findrange")
	must(t, left.AddInputs(fb1))
	must(t, left.AddOutputsStaged(false, true, fc1))
	must(t, left.SetStdout("left.out"))

	right := mustJob(t, "findrange")
	must(t, right.AddBypassInputs(fb2))
	must(t, right.AddOutputsStaged(false, true, fc2))
	must(t, right.AddCheckpoint(NewFile("right.ck"), true, true))

	analyze := mustJob(t, "analyze")
	must(t, analyze.AddInputs(fc1, fc2))
	must(t, analyze.AddOutputs(fd))
	must(t, analyze.SetStdin("analyze.in"))
	must(t, analyze.SetStderr("analyze.err"))
	must(t, analyze.AddShellHook(EventError, "/bin/notify"))

	must(t, wf.AddJobs(pre, left, right, analyze))
	return wf
}

func render(t *testing.T, wf *Workflow, format Format) string {
	t.Helper()
	var buf bytes.Buffer
	if err := wf.Write(&buf, format); err != nil {
		t.Fatalf("Write(%s): %v", format, err)
	}
	return buf.String()
}

func TestWrite_YAMLLayout(t *testing.T) {
	out := render(t, diamond(t), FormatYAML)
	if !strings.HasPrefix(out, "pegasus: \"5.0\"\nname: diamond\nhooks:\n") {
		t.Errorf("unexpected document head:\n%s", out)
	}
	for _, want := range []string{
		"    arguments: []\n",
		"      - lfn: f.b2\n        type: input\n        bypass: true\n",
		"jobDependencies:\n  - id: ID0000001\n    children:\n      - ID0000002\n      - ID0000003\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %q:\n%s", want, out)
		}
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			first := render(t, diamond(t), format)
			wf, err := Load(strings.NewReader(first))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if second := render(t, wf, format); second != first {
				t.Errorf("round trip changed the document:\n--- first\n%s\n--- second\n%s", first, second)
			}
		})
	}
}

func TestLoad_RoundTripTwoJobs(t *testing.T) {
	wf := mustWorkflow(t, "ab")
	a, b := mustJob(t, "a"), mustJob(t, "b")
	must(t, wf.AddJobs(a, b))
	must(t, wf.AddDependency(a, nil, []AbstractJob{b}))
	first := render(t, wf, FormatYAML)

	loaded, err := Load(strings.NewReader(first))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := len(loaded.Jobs()); n != 2 {
		t.Fatalf("len(jobs) = %d, want 2", n)
	}
	deps := loaded.Dependencies()
	if len(deps) != 1 || deps[0].ParentID != "ID0000001" || strings.Join(deps[0].Children(), ",") != "ID0000002" {
		t.Errorf("dependencies = %v", depsOf(loaded))
	}
	if second := render(t, loaded, FormatYAML); second != first {
		t.Errorf("round trip changed the document:\n--- first\n%s\n--- second\n%s", first, second)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diamond.json")
	wf := diamond(t)
	if err := wf.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if wf.Path() != path {
		t.Errorf("Path() = %q, want %q", wf.Path(), path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte("{\n  \"pegasus\": \"5.0\",\n  \"name\": \"diamond\"")) {
		t.Errorf("file is not indented JSON:\n%s", raw)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	j, err := loaded.GetJob("ID0000004")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	job := j.(*Job)
	if job.Stdin() == nil || job.Stdin().LFN != "analyze.in" {
		t.Errorf("stdin = %v, want analyze.in", job.Stdin())
	}
	if job.Hooks("shell") == nil {
		t.Error("job hooks were not loaded")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("LoadFile(missing) returned no error")
	}
}

func TestLoad_SubWorkflow(t *testing.T) {
	wf := mustWorkflow(t, "outer")
	sub, err := NewSubWorkflow("inner.yml", true)
	if err != nil {
		t.Fatal(err)
	}
	must(t, sub.AddArgs("--verbose"))
	must(t, wf.AddJobs(sub))
	first := render(t, wf, FormatYAML)

	loaded, err := Load(strings.NewReader(first))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded.Jobs()[0].(*SubWorkflow)
	if !ok {
		t.Fatalf("job type = %T, want *SubWorkflow", loaded.Jobs()[0])
	}
	if !got.IsPlanned || got.File.LFN != "inner.yml" {
		t.Errorf("sub-workflow = %+v", got)
	}
	if second := render(t, loaded, FormatYAML); second != first {
		t.Errorf("round trip changed the document:\n--- first\n%s\n--- second\n%s", first, second)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind Kind
	}{
		{"not a mapping", "- a\n- b\n", KindInvalidArgument},
		{"missing jobs", "pegasus: \"5.0\"\nname: wf\n", KindInvalidArgument},
		{"bad name", "pegasus: \"5.0\"\nname: bad name\njobs: []\n", KindInvalidArgument},
		{"old version", "pegasus: \"4.0\"\nname: wf\njobs: []\n", KindInvalidArgument},
		{"future version", "pegasus: \"6.1\"\nname: wf\njobs: []\n", KindInvalidArgument},
		{"bad version", "pegasus: five\nname: wf\njobs: []\n", KindInvalidArgument},
		{"unknown key", "pegasus: \"5.0\"\nname: wf\njobs: []\nextra: 1\n", KindInvalidArgument},
		{"bad namespace", "pegasus: \"5.0\"\nname: wf\nprofiles:\n  bogus:\n    k: v\njobs: []\n", KindInvalidArgument},
		{
			"bad link type",
			"pegasus: \"5.0\"\nname: wf\njobs:\n  - type: job\n    name: a\n    id: a\n    arguments: []\n    uses:\n      - lfn: f\n        type: inout\n",
			KindInvalidArgument,
		},
		{
			"duplicate use",
			"pegasus: \"5.0\"\nname: wf\njobs:\n  - type: job\n    name: a\n    id: a\n    arguments: []\n    uses:\n      - lfn: f\n        type: input\n      - lfn: f\n        type: output\n",
			KindDuplicate,
		},
		{
			"stdout not an output",
			"pegasus: \"5.0\"\nname: wf\njobs:\n  - type: job\n    name: a\n    id: a\n    stdout: f\n    arguments: []\n    uses:\n      - lfn: f\n        type: input\n",
			KindInvalidArgument,
		},
		{
			"duplicate job id",
			"pegasus: \"5.0\"\nname: wf\njobs:\n  - {type: job, name: a, id: a, arguments: [], uses: []}\n  - {type: job, name: b, id: a, arguments: [], uses: []}\n",
			KindDuplicate,
		},
		{
			"unknown dependency",
			"pegasus: \"5.0\"\nname: wf\njobs:\n  - {type: job, name: a, id: a, arguments: [], uses: []}\njobDependencies:\n  - {id: a, children: [b]}\n",
			KindNotFound,
		},
		{
			"repeated dependency",
			"pegasus: \"5.0\"\nname: wf\njobs:\n  - {type: job, name: a, id: a, arguments: [], uses: []}\n  - {type: job, name: b, id: b, arguments: [], uses: []}\njobDependencies:\n  - {id: a, children: [b]}\n  - {id: a, children: [b]}\n",
			KindDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("Load returned no error")
			}
			if got := KindOf(err); got != tt.kind {
				t.Errorf("kind = %q, want %q (err: %v)", got, tt.kind, err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"YAML", FormatYAML, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if FormatForPath("wf.JSON") != FormatJSON || FormatForPath("wf.yaml") != FormatYAML {
		t.Error("FormatForPath picked the wrong format")
	}
}

func TestErrorKinds(t *testing.T) {
	err := errorf(KindNotFound, "job %s not found", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false")
	}
	if errors.Is(err, ErrDuplicate) {
		t.Error("errors.Is(err, ErrDuplicate) = true")
	}
	if got := err.Error(); got != "NOT_FOUND: job x not found" {
		t.Errorf("Error() = %q", got)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf(plain error) is not empty")
	}
}
