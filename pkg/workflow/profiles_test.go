package workflow

import (
	"errors"
	"strings"
	"testing"
)

func TestAddProfiles(t *testing.T) {
	var a Attributes
	must(t, a.AddProfiles(NamespaceEnv, map[string]any{"JAVA_HOME": "/opt/java", "APP_HOME": "/opt/app"}))
	must(t, a.AddProfiles(NamespaceCondor, map[string]any{"universe": "vanilla"}))
	must(t, a.AddProfiles(NamespaceEnv, map[string]any{"JAVA_HOME": "/usr/java"}))

	want := `{"env":{"APP_HOME":"/opt/app","JAVA_HOME":"/usr/java"},"condor":{"universe":"vanilla"}}`
	if got := compactJSON(t, a.Profiles()); got != want {
		t.Errorf("profiles = %s, want %s", got, want)
	}
	if v, ok := a.Profile(NamespaceEnv, "JAVA_HOME"); !ok || v != "/usr/java" {
		t.Errorf("Profile(env, JAVA_HOME) = %v, %v", v, ok)
	}
	if _, ok := a.Profile(NamespaceDagman, "RETRY"); ok {
		t.Error("Profile(dagman, RETRY) found, want missing")
	}
}

func TestAddProfiles_Invalid(t *testing.T) {
	var a Attributes
	if err := a.AddProfiles(Namespace("bogus"), map[string]any{"k": "v"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad namespace: error = %v, want INVALID_ARGUMENT", err)
	}
	err := a.AddProfiles(NamespaceEnv, map[string]any{"A": "ok", "B": []int{1}})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("non-scalar value: error = %v, want INVALID_ARGUMENT", err)
	}
	if a.Profiles() != nil {
		t.Errorf("profiles = %v after rejected calls, want nil", compactJSON(t, a.Profiles()))
	}
}

func TestKeywordProfiles(t *testing.T) {
	tests := []struct {
		name string
		add  func(a *Attributes) error
		want string
	}{
		{
			"pegasus",
			func(a *Attributes) error {
				return a.AddPegasusProfiles(map[string]any{
					"clusters_num":         2,
					"grid_start":           "PegasusLite",
					"exitcode_success_msg": "ok",
					"max_walltime":         60,
				})
			},
			`{"pegasus":{"clusters.num":2,"gridstart":"PegasusLite","exitcode.successmsg":"ok","maxwalltime":60}}`,
		},
		{
			"condor",
			func(a *Attributes) error {
				return a.AddCondorProfiles(map[string]any{"filesystem_domain": "fd", "request_gpus": 1})
			},
			`{"condor":{"filesystemdomain":"fd","request_gpus":1}}`,
		},
		{
			"dagman",
			func(a *Attributes) error {
				return a.AddDagmanProfiles(map[string]any{"retry": 3, "abort_dag_on": "1", "post_scope": "all"})
			},
			`{"dagman":{"RETRY":3,"ABORT-DAG-ON":"1","POST.SCOPE":"all"}}`,
		},
		{
			"globus",
			func(a *Attributes) error {
				return a.AddGlobusProfiles(map[string]any{"job_type": "single", "max_wall_time": 10})
			},
			`{"globus":{"jobtype":"single","maxwalltime":10}}`,
		},
		{
			"selector",
			func(a *Attributes) error {
				return a.AddSelectorProfiles(map[string]any{"execution_site": "condorpool", "grid_job_type": "compute"})
			},
			`{"selector":{"execution.site":"condorpool","grid.jobtype":"compute"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Attributes
			if err := tt.add(&a); err != nil {
				t.Fatalf("add: %v", err)
			}
			if got := compactJSON(t, a.Profiles()); got != tt.want {
				t.Errorf("profiles = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKeywordProfiles_UnknownKeyword(t *testing.T) {
	var a Attributes
	err := a.AddDagmanProfiles(map[string]any{"retry": 1, "retries": 2})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
	if !strings.Contains(err.Error(), `"retries"`) {
		t.Errorf("error %q does not name the keyword", err)
	}
	if a.Profiles() != nil {
		t.Error("valid keywords were applied despite the error")
	}
}

func TestAddMetadata(t *testing.T) {
	var a Attributes
	must(t, a.AddMetadata(map[string]any{"b": 1, "a": "x"}))
	must(t, a.AddMetadata(map[string]any{"c": true, "b": 2}))
	if got, want := compactJSON(t, a.Metadata()), `{"a":"x","b":2,"c":true}`; got != want {
		t.Errorf("metadata = %s, want %s", got, want)
	}
	if err := a.AddMetadata(map[string]any{"bad": struct{}{}}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("non-scalar metadata: error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestShellHooks(t *testing.T) {
	var a Attributes
	must(t, a.AddShellHook(EventStart, "/bin/echo start"))
	must(t, a.AddShellHook(EventAll, "/bin/echo all"))
	if err := a.AddShellHook(EventType("sometimes"), "/bin/true"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad event: error = %v, want INVALID_ARGUMENT", err)
	}
	if n := len(a.Hooks("shell")); n != 2 {
		t.Fatalf("len(shell hooks) = %d, want 2", n)
	}
	_, _, hooks := a.attributeDocs()
	want := `{"shell":[{"_on":"start","cmd":"/bin/echo start"},{"_on":"all","cmd":"/bin/echo all"}]}`
	if got := compactJSON(t, hooks); got != want {
		t.Errorf("hooks = %s, want %s", got, want)
	}
}

func TestAttributes_EmptyBagsOmitted(t *testing.T) {
	var a Attributes
	must(t, a.AddMetadata(map[string]any{}))
	profiles, metadata, hooks := a.attributeDocs()
	if profiles != nil || metadata != nil || hooks != nil {
		t.Errorf("attributeDocs() = %v, %v, %v; want all nil", profiles, metadata, hooks)
	}
}
