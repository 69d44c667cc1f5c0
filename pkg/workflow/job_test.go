package workflow

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewJob(t *testing.T) {
	tr := &Transformation{Name: "preprocess", Namespace: "diamond", Version: "4.0"}
	j, err := NewJob(tr, WithNodeLabel("pre"))
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if j.Transformation != "preprocess" || j.Namespace != "diamond" || j.Version != "4.0" {
		t.Errorf("job = %+v, want fields copied from transformation", j)
	}
	want := `{"type":"job","namespace":"diamond","version":"4.0","name":"preprocess","nodeLabel":"pre","arguments":[],"uses":[]}`
	if got := compactJSON(t, j.Document()); got != want {
		t.Errorf("document = %s, want %s", got, want)
	}

	tests := []struct {
		name string
		tr   any
	}{
		{"empty name", ""},
		{"nil transformation", (*Transformation)(nil)},
		{"wrong type", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJob(tt.tr); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}

func TestJob_UsesAreUniqueAcrossRoles(t *testing.T) {
	tests := []struct {
		name  string
		first func(j *Job) error
		again func(j *Job) error
	}{
		{
			"input then output",
			func(j *Job) error { return j.AddInputs(NewFile("a")) },
			func(j *Job) error { return j.AddOutputs(NewFile("a")) },
		},
		{
			"output then input",
			func(j *Job) error { return j.AddOutputs(NewFile("a")) },
			func(j *Job) error { return j.AddInputs(NewFile("a")) },
		},
		{
			"input then checkpoint",
			func(j *Job) error { return j.AddInputs(NewFile("a")) },
			func(j *Job) error { return j.AddCheckpoint(NewFile("a"), false, false) },
		},
		{
			"input twice",
			func(j *Job) error { return j.AddInputs(NewFile("a")) },
			func(j *Job) error { return j.AddBypassInputs(NewFile("a")) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := mustJob(t, "tr")
			if err := tt.first(j); err != nil {
				t.Fatalf("first add: %v", err)
			}
			if err := tt.again(j); !errors.Is(err, ErrDuplicate) {
				t.Errorf("second add error = %v, want DUPLICATE", err)
			}
			if n := len(j.Uses()); n != 1 {
				t.Errorf("len(uses) = %d, want 1", n)
			}
		})
	}
}

func TestJob_UseDocuments(t *testing.T) {
	j := mustJob(t, "tr")
	in := NewFile("in.txt").WithSize(1024)
	must(t, in.AddMetadata(map[string]any{"creator": "ryan"}))
	must(t, j.AddInputs(in))
	must(t, j.AddBypassInputs(NewFile("fast.dat")))
	must(t, j.AddOutputsStaged(false, false, NewFile("tmp.out")))
	must(t, j.AddCheckpoint(NewFile("state.ck"), true, false))

	want := `[` +
		`{"lfn":"in.txt","metadata":{"creator":"ryan"},"size":1024,"type":"input"},` +
		`{"lfn":"fast.dat","type":"input","bypass":true},` +
		`{"lfn":"tmp.out","type":"output","stageOut":false,"registerReplica":false},` +
		`{"lfn":"state.ck","type":"checkpoint","stageOut":true,"registerReplica":false}` +
		`]`
	if got := compactJSON(t, mustGet(t, j.Document(), "uses")); got != want {
		t.Errorf("uses =\n%s\nwant\n%s", got, want)
	}
	if got := len(j.Inputs()); got != 2 {
		t.Errorf("len(Inputs) = %d, want 2", got)
	}
	if got := len(j.Outputs()); got != 1 {
		t.Errorf("len(Outputs) = %d, want 1", got)
	}
}

func TestNewUse_BypassOnlyForInputs(t *testing.T) {
	if _, err := newUse(NewFile("a"), LinkOutput, nil, nil, true); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bypass output: error = %v, want INVALID_ARGUMENT", err)
	}
	if _, err := newUse(nil, LinkInput, nil, nil, false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil file: error = %v, want INVALID_ARGUMENT", err)
	}
	if _, err := newUse(NewFile("a"), LinkType("inout"), nil, nil, false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad link type: error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestJob_Stdio(t *testing.T) {
	j := mustJob(t, "tr")
	must(t, j.SetStdout("out.txt"))
	if err := j.SetStdout("other.txt"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second SetStdout: error = %v, want DUPLICATE", err)
	}
	if j.Stdout() == nil || j.Stdout().LFN != "out.txt" {
		t.Errorf("stdout = %v, want out.txt", j.Stdout())
	}

	f := NewFile("f.in")
	must(t, j.AddInputs(f))
	if err := j.SetStdin(f); !errors.Is(err, ErrDuplicate) {
		t.Errorf("SetStdin on existing input: error = %v, want DUPLICATE", err)
	}
	if j.Stdin() != nil {
		t.Errorf("stdin = %v after failed set, want nil", j.Stdin())
	}

	if err := j.SetStderr(3.5); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetStderr(3.5): error = %v, want INVALID_ARGUMENT", err)
	}
	must(t, j.SetStderr(NewFile("err.txt")))
	must(t, j.SetStdin("other.in"))

	d := j.Document()
	if got, want := strings.Join(d.Keys(), ","), "type,name,stdin,stdout,stderr,arguments,uses"; got != want {
		t.Errorf("keys = %s, want %s", got, want)
	}
	if v, _ := d.Get("stderr"); v != "err.txt" {
		t.Errorf("stderr = %v, want err.txt", v)
	}
}

func TestJob_AddArgs(t *testing.T) {
	j := mustJob(t, "tr")
	must(t, j.AddArgs("-i", NewFile("f.a"), "-n", 3, 0.5))
	if got, want := compactJSON(t, mustGet(t, j.Document(), "arguments")), `["-i","f.a","-n",3,0.5]`; got != want {
		t.Errorf("arguments = %s, want %s", got, want)
	}

	for _, bad := range []any{true, []string{"x"}, map[string]any{}, nil, (*File)(nil), math.NaN(), math.Inf(1), float32(math.Inf(-1))} {
		if err := j.AddArgs(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("AddArgs(%#v): error = %v, want INVALID_ARGUMENT", bad, err)
		}
	}
	if n := len(j.Args()); n != 5 {
		t.Errorf("len(args) = %d after rejected calls, want 5", n)
	}
}

func TestJob_StdioStaged(t *testing.T) {
	j := mustJob(t, "tr")
	must(t, j.SetStdoutStaged("out.txt", false, true))
	must(t, j.SetStderrStaged(NewFile("err.txt"), true, false))
	if err := j.SetStdoutStaged("again.txt", true, true); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second SetStdoutStaged: error = %v, want DUPLICATE", err)
	}
	if err := j.SetStderrStaged(nil, true, true); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second SetStderrStaged: error = %v, want DUPLICATE", err)
	}

	want := `[` +
		`{"lfn":"out.txt","type":"output","stageOut":false,"registerReplica":true},` +
		`{"lfn":"err.txt","type":"output","stageOut":true,"registerReplica":false}` +
		`]`
	if got := compactJSON(t, mustGet(t, j.Document(), "uses")); got != want {
		t.Errorf("uses =\n%s\nwant\n%s", got, want)
	}

	k := mustJob(t, "tr")
	if err := k.SetStdoutStaged(42, true, true); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetStdoutStaged(42): error = %v, want INVALID_ARGUMENT", err)
	}
	if k.Stdout() != nil || len(k.Uses()) != 0 {
		t.Errorf("stdout = %v, uses = %d after rejected set", k.Stdout(), len(k.Uses()))
	}
}

func TestSubWorkflow(t *testing.T) {
	tests := []struct {
		planned  bool
		wantType string
	}{
		{false, "pegasusWorkflow"},
		{true, "condorWorkflow"},
	}
	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			sw, err := NewSubWorkflow("inner.yml", tt.planned, WithID("sub"))
			if err != nil {
				t.Fatalf("NewSubWorkflow: %v", err)
			}
			must(t, sw.AddArgs("--sites", "condorpool"))
			want := `{"type":"` + tt.wantType + `","file":"inner.yml","id":"sub",` +
				`"arguments":["--sites","condorpool"],"uses":[{"lfn":"inner.yml","type":"input"}]}`
			if got := compactJSON(t, sw.Document()); got != want {
				t.Errorf("document = %s, want %s", got, want)
			}
			if err := sw.AddInputs(NewFile("inner.yml")); !errors.Is(err, ErrDuplicate) {
				t.Errorf("re-adding workflow file: error = %v, want DUPLICATE", err)
			}
		})
	}

	if _, err := NewSubWorkflow(7, false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewSubWorkflow(7): error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestJob_AttributesDocumentOrder(t *testing.T) {
	j := mustJob(t, "tr", WithID("j1"))
	must(t, j.AddShellHook(EventError, "/bin/alert"))
	must(t, j.AddMetadata(map[string]any{"size": "large"}))
	must(t, j.AddCondorProfiles(map[string]any{"request_memory": "2 GB"}))

	want := `{"type":"job","name":"tr","id":"j1","arguments":[],"uses":[],` +
		`"profiles":{"condor":{"request_memory":"2 GB"}},"metadata":{"size":"large"},` +
		`"hooks":{"shell":[{"_on":"error","cmd":"/bin/alert"}]}}`
	if got := compactJSON(t, j.Document()); got != want {
		t.Errorf("document =\n%s\nwant\n%s", got, want)
	}
}
