package workflow

import "fmt"

// Catalog is a site, replica or transformation catalog. Catalogs are
// opaque to the graph: a Workflow only embeds their documents.
type Catalog interface {
	// Document renders the catalog as a standalone document whose first
	// key is the format version.
	Document() *Doc
}

// --- Transformation catalog ---

// Transformation site types.
const (
	TransformationInstalled = "installed"
	TransformationStageable = "stageable"
)

// TransformationSite is a location of a transformation's executable.
type TransformationSite struct {
	Name string
	PFN  string
	Type string // installed or stageable
}

// Transformation describes an executable that jobs reference by name.
type Transformation struct {
	Name      string
	Namespace string
	Version   string
	Sites     []TransformationSite
}

func (t *Transformation) key() string {
	return fmt.Sprintf("%s::%s:%s", t.Namespace, t.Name, t.Version)
}

// Document renders the transformation entry.
func (t *Transformation) Document() *Doc {
	d := NewDoc()
	if t.Namespace != "" {
		d.Set("namespace", t.Namespace)
	}
	d.Set("name", t.Name)
	if t.Version != "" {
		d.Set("version", t.Version)
	}
	sites := make([]any, 0, len(t.Sites))
	for _, s := range t.Sites {
		sites = append(sites, NewDoc().Set("name", s.Name).Set("pfn", s.PFN).Set("type", s.Type))
	}
	d.Set("sites", sites)
	return d
}

// TransformationCatalog lists transformations. The zero value is an empty
// catalog.
type TransformationCatalog struct {
	order []string
	byKey map[string]*Transformation
}

// NewTransformationCatalog returns an empty catalog.
func NewTransformationCatalog() *TransformationCatalog {
	return &TransformationCatalog{byKey: make(map[string]*Transformation)}
}

// AddTransformations adds transformations, rejecting one whose
// namespace, name and version are already present.
func (tc *TransformationCatalog) AddTransformations(ts ...*Transformation) error {
	for _, t := range ts {
		if t == nil || t.Name == "" {
			return errorf(KindInvalidArgument, "invalid transformation: a name is required")
		}
		for _, s := range t.Sites {
			if s.Type != TransformationInstalled && s.Type != TransformationStageable {
				return errorf(KindInvalidArgument, "invalid site type %q for transformation %s", s.Type, t.Name)
			}
		}
		k := t.key()
		if _, ok := tc.byKey[k]; ok {
			return errorf(KindDuplicate, "transformation %s already exists in this catalog", k)
		}
		if tc.byKey == nil {
			tc.byKey = make(map[string]*Transformation)
		}
		tc.byKey[k] = t
		tc.order = append(tc.order, k)
	}
	return nil
}

// Document renders the catalog.
func (tc *TransformationCatalog) Document() *Doc {
	list := make([]any, 0, len(tc.order))
	for _, k := range tc.order {
		list = append(list, tc.byKey[k].Document())
	}
	return NewDoc().Set(FormatKey, FormatVersion).Set("transformations", list)
}

// --- Replica catalog ---

type replica struct {
	file *File
	pfns []*Doc
}

// ReplicaCatalog maps logical files to physical locations. The zero value
// is an empty catalog.
type ReplicaCatalog struct {
	order []string
	byLFN map[string]*replica
}

// NewReplicaCatalog returns an empty catalog.
func NewReplicaCatalog() *ReplicaCatalog {
	return &ReplicaCatalog{byLFN: make(map[string]*replica)}
}

// AddReplica records that lfn (a *File or file name) is available at pfn
// on site. A *File contributes its size and metadata.
func (rc *ReplicaCatalog) AddReplica(site string, lfn any, pfn string) error {
	f, err := toFile(lfn, "lfn")
	if err != nil {
		return err
	}
	if site == "" || pfn == "" {
		return errorf(KindInvalidArgument, "replica of %s requires a site and a pfn", f.LFN)
	}
	r, ok := rc.byLFN[f.LFN]
	if !ok {
		if rc.byLFN == nil {
			rc.byLFN = make(map[string]*replica)
		}
		r = &replica{file: f}
		rc.byLFN[f.LFN] = r
		rc.order = append(rc.order, f.LFN)
	}
	for _, p := range r.pfns {
		s, _ := p.Get("site")
		u, _ := p.Get("pfn")
		if s == site && u == pfn {
			return errorf(KindDuplicate, "replica %s at %s on site %s already exists", f.LFN, pfn, site)
		}
	}
	r.pfns = append(r.pfns, NewDoc().Set("site", site).Set("pfn", pfn))
	return nil
}

// Document renders the catalog.
func (rc *ReplicaCatalog) Document() *Doc {
	list := make([]any, 0, len(rc.order))
	for _, lfn := range rc.order {
		r := rc.byLFN[lfn]
		d := r.file.Document()
		pfns := make([]any, 0, len(r.pfns))
		for _, p := range r.pfns {
			pfns = append(pfns, p)
		}
		d.Set("pfns", pfns)
		list = append(list, d)
	}
	return NewDoc().Set(FormatKey, FormatVersion).Set("replicas", list)
}

// --- Site catalog ---

// FileServer is an endpoint serving a site directory.
type FileServer struct {
	URL       string
	Operation string // all, get or put
}

// Directory is a storage or scratch directory of a site.
type Directory struct {
	Type             string // sharedScratch, sharedStorage, localScratch, localStorage
	Path             string
	SharedFileSystem bool
	FileServers      []FileServer
}

// Site is an execution or storage site.
type Site struct {
	Name        string
	Arch        string
	OSType      string
	Directories []Directory
}

// Document renders the site entry.
func (s *Site) Document() *Doc {
	d := NewDoc().Set("name", s.Name)
	if s.Arch != "" {
		d.Set("arch", s.Arch)
	}
	if s.OSType != "" {
		d.Set("os.type", s.OSType)
	}
	dirs := make([]any, 0, len(s.Directories))
	for _, dir := range s.Directories {
		dd := NewDoc().Set("type", dir.Type).Set("path", dir.Path).Set("sharedFileSystem", dir.SharedFileSystem)
		servers := make([]any, 0, len(dir.FileServers))
		for _, fs := range dir.FileServers {
			servers = append(servers, NewDoc().Set("url", fs.URL).Set("operation", fs.Operation))
		}
		dd.Set("fileServers", servers)
		dirs = append(dirs, dd)
	}
	d.Set("directories", dirs)
	return d
}

// SiteCatalog lists sites. The zero value is an empty catalog.
type SiteCatalog struct {
	order  []string
	byName map[string]*Site
}

// NewSiteCatalog returns an empty catalog.
func NewSiteCatalog() *SiteCatalog {
	return &SiteCatalog{byName: make(map[string]*Site)}
}

// AddSites adds sites, rejecting duplicate names.
func (sc *SiteCatalog) AddSites(sites ...*Site) error {
	for _, s := range sites {
		if s == nil || s.Name == "" {
			return errorf(KindInvalidArgument, "invalid site: a name is required")
		}
		if _, ok := sc.byName[s.Name]; ok {
			return errorf(KindDuplicate, "site %s already exists in this catalog", s.Name)
		}
		if sc.byName == nil {
			sc.byName = make(map[string]*Site)
		}
		sc.byName[s.Name] = s
		sc.order = append(sc.order, s.Name)
	}
	return nil
}

// Document renders the catalog.
func (sc *SiteCatalog) Document() *Doc {
	list := make([]any, 0, len(sc.order))
	for _, name := range sc.order {
		list = append(list, sc.byName[name].Document())
	}
	return NewDoc().Set(FormatKey, FormatVersion).Set("sites", list)
}

// RawCatalog is a catalog read back from a document; its content is kept
// as is.
type RawCatalog struct {
	body *Doc
}

// Document renders the catalog with the format version restored.
func (r *RawCatalog) Document() *Doc {
	d := NewDoc().Set(FormatKey, FormatVersion)
	for _, k := range r.body.Keys() {
		if k == FormatKey {
			continue
		}
		v, _ := r.body.Get(k)
		d.Set(k, v)
	}
	return d
}

// embedded renders c without its format version key.
func embedded(c Catalog) *Doc {
	d := c.Document().Clone()
	d.Delete(FormatKey)
	return d
}
