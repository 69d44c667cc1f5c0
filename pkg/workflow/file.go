package workflow

// File is a logical file identified by its logical file name (LFN).
// A File may be shared by several jobs and by a replica catalog.
type File struct {
	LFN      string
	Size     *int64
	metadata *Doc
}

// NewFile returns a File named lfn.
func NewFile(lfn string) *File {
	return &File{LFN: lfn}
}

// WithSize sets the file size in bytes and returns f.
func (f *File) WithSize(n int64) *File {
	f.Size = &n
	return f
}

// AddMetadata merges kv into the file's metadata.
func (f *File) AddMetadata(kv map[string]any) error {
	if f.metadata == nil {
		f.metadata = NewDoc()
	}
	return mergeScalars(f.metadata, kv)
}

// Metadata returns the file metadata, nil when none was added.
func (f *File) Metadata() *Doc {
	return f.metadata
}

func (f *File) String() string {
	return f.LFN
}

// Document renders the file the way catalogs embed it.
func (f *File) Document() *Doc {
	d := NewDoc().Set("lfn", f.LFN)
	if f.metadata.Len() > 0 {
		d.Set("metadata", f.metadata)
	}
	if f.Size != nil {
		d.Set("size", *f.Size)
	}
	return d
}

// toFile promotes a bare name to a File; any other type is rejected.
func toFile(v any, what string) (*File, error) {
	switch f := v.(type) {
	case *File:
		if f == nil {
			return nil, errorf(KindInvalidArgument, "invalid %s: nil File", what)
		}
		return f, nil
	case string:
		if f == "" {
			return nil, errorf(KindInvalidArgument, "invalid %s: empty file name", what)
		}
		return NewFile(f), nil
	default:
		return nil, errorf(KindInvalidArgument, "invalid %s: %v; %s must be of type *File or string", what, v, what)
	}
}
