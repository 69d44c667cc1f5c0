package workflow

import (
	"sort"
)

// Namespace identifies a profile namespace understood by the planner.
type Namespace string

const (
	NamespacePegasus  Namespace = "pegasus"
	NamespaceCondor   Namespace = "condor"
	NamespaceDagman   Namespace = "dagman"
	NamespaceEnv      Namespace = "env"
	NamespaceHints    Namespace = "hints"
	NamespaceGlobus   Namespace = "globus"
	NamespaceSelector Namespace = "selector"
	NamespaceStat     Namespace = "stat"
)

// Namespaces lists every recognized namespace.
var Namespaces = []Namespace{
	NamespacePegasus, NamespaceCondor, NamespaceDagman, NamespaceEnv,
	NamespaceHints, NamespaceGlobus, NamespaceSelector, NamespaceStat,
}

// Valid reports whether n is a recognized namespace.
func (n Namespace) Valid() bool {
	for _, ns := range Namespaces {
		if n == ns {
			return true
		}
	}
	return false
}

// keyword maps a convenience parameter name to its on-wire profile key.
type keyword struct {
	param string
	key   string
}

var pegasusKeywords = []keyword{
	{"clusters_num", "clusters.num"},
	{"clusters_size", "clusters.size"},
	{"job_aggregator", "job.aggregator"},
	{"grid_start", "gridstart"},
	{"grid_start_path", "gridstart.path"},
	{"grid_start_arguments", "gridstart.arguments"},
	{"stagein_clusters", "stagein.clusters"},
	{"stagein_local_clusters", "stagein.local.clusters"},
	{"stagein_remote_clusters", "stagein.remote.clusters"},
	{"stageout_clusters", "stageout.clusters"},
	{"stageout_local_clusters", "stageout.local.clusters"},
	{"stageout_remote_clusters", "stageout.remote.clusters"},
	{"group", "group"},
	{"change_dir", "change.dir"},
	{"create_dir", "create.dir"},
	{"transfer_proxy", "transfer.proxy"},
	{"style", "style"},
	{"pmc_request_memory", "pmc_request_memory"},
	{"pmc_request_cpus", "pmc_request_cpus"},
	{"pmc_priority", "pmc_priority"},
	{"pmc_task_arguments", "pmc_task_arguments"},
	{"exitcode_failure_msg", "exitcode.failuremsg"},
	{"exitcode_success_msg", "exitcode.successmsg"},
	{"checkpoint_time", "checkpoint_time"},
	{"max_walltime", "maxwalltime"},
	{"glite_arguments", "glite.arguments"},
	{"auxillary_local", "auxillary.local"},
	{"condor_arguments_quote", "condor.arguments.quote"},
	{"runtime", "runtime"},
	{"clusters_max_runtime", "clusters.maxruntime"},
	{"cores", "cores"},
	{"nodes", "nodes"},
	{"ppn", "ppn"},
	{"memory", "memory"},
	{"diskspace", "diskspace"},
}

var condorKeywords = []keyword{
	{"universe", "universe"},
	{"periodic_release", "periodic_release"},
	{"periodic_remove", "periodic_remove"},
	{"filesystem_domain", "filesystemdomain"},
	{"stream_error", "stream_error"},
	{"stream_output", "stream_output"},
	{"priority", "priority"},
	{"request_cpus", "request_cpus"},
	{"request_gpus", "request_gpus"},
	{"request_memory", "request_memory"},
	{"request_disk", "request_disk"},
}

var dagmanKeywords = []keyword{
	{"pre", "PRE"},
	{"pre_arguments", "PRE.ARGUMENTS"},
	{"post", "POST"},
	{"post_arguments", "POST.ARGUMENTS"},
	{"retry", "RETRY"},
	{"category", "CATEGORY"},
	{"priority", "PRIORITY"},
	{"abort_dag_on", "ABORT-DAG-ON"},
	{"max_pre", "MAXPRE"},
	{"max_post", "MAXPOST"},
	{"max_jobs", "MAXJOBS"},
	{"max_idle", "MAXIDLE"},
	{"post_scope", "POST.SCOPE"},
}

var globusKeywords = []keyword{
	{"count", "count"},
	{"job_type", "jobtype"},
	{"max_cpu_time", "maxcputime"},
	{"max_memory", "maxmemory"},
	{"max_time", "maxtime"},
	{"max_wall_time", "maxwalltime"},
	{"min_memory", "minmemory"},
	{"project", "project"},
	{"queue", "queue"},
}

var selectorKeywords = []keyword{
	{"execution_site", "execution.site"},
	{"pfn", "pfn"},
	{"grid_job_type", "grid.jobtype"},
}

// Attributes holds the profile, metadata and hook bags shared by jobs and
// workflows. The zero value is ready to use.
type Attributes struct {
	profiles *Doc // namespace -> *Doc
	metadata *Doc
	hooks    *Doc // kind -> []Hook
}

// AddProfiles merges kv into the profiles of namespace ns. Keys are
// inserted in sorted order; an existing key keeps its position and takes
// the new value.
func (a *Attributes) AddProfiles(ns Namespace, kv map[string]any) error {
	if !ns.Valid() {
		return errorf(KindInvalidArgument, "invalid namespace: %q; namespace must be one of %v", ns, Namespaces)
	}
	keys := sortedKeys(kv)
	for _, k := range keys {
		if !isScalar(kv[k]) {
			return errorf(KindInvalidArgument, "invalid value for profile %s.%s: %v (%T)", ns, k, kv[k], kv[k])
		}
	}
	for _, k := range keys {
		a.setProfile(ns, k, kv[k])
	}
	return nil
}

// AddEnv adds environment variables to the env namespace.
func (a *Attributes) AddEnv(vars map[string]string) error {
	kv := make(map[string]any, len(vars))
	for k, v := range vars {
		kv[k] = v
	}
	return a.AddProfiles(NamespaceEnv, kv)
}

// AddPegasusProfiles adds pegasus namespace profiles by parameter name,
// e.g. "clusters_num" becomes "clusters.num".
func (a *Attributes) AddPegasusProfiles(params map[string]any) error {
	return a.addKeywords(NamespacePegasus, pegasusKeywords, params)
}

// AddCondorProfiles adds condor namespace profiles by parameter name.
func (a *Attributes) AddCondorProfiles(params map[string]any) error {
	return a.addKeywords(NamespaceCondor, condorKeywords, params)
}

// AddDagmanProfiles adds dagman namespace profiles by parameter name.
func (a *Attributes) AddDagmanProfiles(params map[string]any) error {
	return a.addKeywords(NamespaceDagman, dagmanKeywords, params)
}

// AddGlobusProfiles adds globus namespace profiles by parameter name.
func (a *Attributes) AddGlobusProfiles(params map[string]any) error {
	return a.addKeywords(NamespaceGlobus, globusKeywords, params)
}

// AddSelectorProfiles adds selector namespace profiles by parameter name.
func (a *Attributes) AddSelectorProfiles(params map[string]any) error {
	return a.addKeywords(NamespaceSelector, selectorKeywords, params)
}

func (a *Attributes) addKeywords(ns Namespace, table []keyword, params map[string]any) error {
	known := make(map[string]bool, len(table))
	for _, kw := range table {
		known[kw.param] = true
	}
	for _, p := range sortedKeys(params) {
		if !known[p] {
			return errorf(KindInvalidArgument, "%s profiles got an unexpected keyword %q", ns, p)
		}
		if !isScalar(params[p]) {
			return errorf(KindInvalidArgument, "invalid value for %s profile keyword %q: %v (%T)", ns, p, params[p], params[p])
		}
	}
	for _, kw := range table {
		if v, ok := params[kw.param]; ok {
			a.setProfile(ns, kw.key, v)
		}
	}
	return nil
}

func (a *Attributes) setProfile(ns Namespace, key string, v any) {
	if a.profiles == nil {
		a.profiles = NewDoc()
	}
	entry, ok := a.profiles.Get(string(ns))
	if !ok {
		entry = NewDoc()
		a.profiles.Set(string(ns), entry)
	}
	entry.(*Doc).Set(key, v)
}

// Profile returns the value of key in namespace ns.
func (a *Attributes) Profile(ns Namespace, key string) (any, bool) {
	entry, ok := a.profiles.Get(string(ns))
	if !ok {
		return nil, false
	}
	return entry.(*Doc).Get(key)
}

// Profiles returns the profile bag (namespace -> key -> value). It is nil
// when no profile has been added.
func (a *Attributes) Profiles() *Doc {
	return a.profiles
}

// AddMetadata merges kv into the metadata bag.
func (a *Attributes) AddMetadata(kv map[string]any) error {
	if a.metadata == nil {
		a.metadata = NewDoc()
	}
	return mergeScalars(a.metadata, kv)
}

// Metadata returns the metadata bag, nil when empty.
func (a *Attributes) Metadata() *Doc {
	return a.metadata
}

// AddShellHook appends a shell hook run on the given event.
func (a *Attributes) AddShellHook(on EventType, cmd string) error {
	h, err := NewShellHook(on, cmd)
	if err != nil {
		return err
	}
	a.addHook(h)
	return nil
}

func (a *Attributes) addHook(h Hook) {
	if a.hooks == nil {
		a.hooks = NewDoc()
	}
	list, _ := a.hooks.Get(h.Kind())
	hooks, _ := list.([]Hook)
	a.hooks.Set(h.Kind(), append(hooks, h))
}

// Hooks returns the hooks of the given kind in the order they were added.
func (a *Attributes) Hooks(kind string) []Hook {
	list, _ := a.hooks.Get(kind)
	hooks, _ := list.([]Hook)
	return hooks
}

// attributeDocs renders the non-empty bags; nil entries are omitted by the
// caller.
func (a *Attributes) attributeDocs() (profiles, metadata, hooks *Doc) {
	if a.profiles.Len() > 0 {
		profiles = a.profiles
	}
	if a.metadata.Len() > 0 {
		metadata = a.metadata
	}
	if a.hooks.Len() > 0 {
		hooks = NewDoc()
		for _, kind := range a.hooks.Keys() {
			list, _ := a.hooks.Get(kind)
			var rendered []any
			for _, h := range list.([]Hook) {
				rendered = append(rendered, h.Document())
			}
			hooks.Set(kind, rendered)
		}
	}
	return profiles, metadata, hooks
}

func mergeScalars(dst *Doc, kv map[string]any) error {
	keys := sortedKeys(kv)
	for _, k := range keys {
		if !isScalar(kv[k]) {
			return errorf(KindInvalidArgument, "invalid metadata value for %q: %v (%T)", k, kv[k], kv[k])
		}
	}
	for _, k := range keys {
		dst.Set(k, kv[k])
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
