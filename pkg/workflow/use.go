package workflow

// LinkType is the role a file plays for a job.
type LinkType string

const (
	LinkInput      LinkType = "input"
	LinkOutput     LinkType = "output"
	LinkCheckpoint LinkType = "checkpoint"
)

// ParseLinkType converts the on-wire name of a link type.
func ParseLinkType(s string) (LinkType, error) {
	switch t := LinkType(s); t {
	case LinkInput, LinkOutput, LinkCheckpoint:
		return t, nil
	}
	return "", errorf(KindInvalidArgument, "invalid link type: %q; link type must be one of [input output checkpoint]", s)
}

// Use binds a File to a job. Unset staging flags are omitted from output.
type Use struct {
	File            *File
	Type            LinkType
	StageOut        *bool
	RegisterReplica *bool
	Bypass          *bool
}

func newUse(f *File, t LinkType, stageOut, registerReplica *bool, bypass bool) (*Use, error) {
	if f == nil {
		return nil, errorf(KindInvalidArgument, "invalid file: nil; file must be of type *File")
	}
	if _, err := ParseLinkType(string(t)); err != nil {
		return nil, err
	}
	if bypass && t != LinkInput {
		return nil, errorf(KindInvalidArgument, "bypass can only be set when link type is input (file %s is %s)", f.LFN, t)
	}
	u := &Use{File: f, Type: t, StageOut: stageOut, RegisterReplica: registerReplica}
	if bypass {
		u.Bypass = boolPtr(true)
	}
	return u, nil
}

// Document renders the use.
func (u *Use) Document() *Doc {
	d := NewDoc().Set("lfn", u.File.LFN)
	if u.File.metadata.Len() > 0 {
		d.Set("metadata", u.File.metadata)
	}
	if u.File.Size != nil {
		d.Set("size", *u.File.Size)
	}
	d.Set("type", string(u.Type))
	if u.StageOut != nil {
		d.Set("stageOut", *u.StageOut)
	}
	if u.RegisterReplica != nil {
		d.Set("registerReplica", *u.RegisterReplica)
	}
	if u.Bypass != nil {
		d.Set("bypass", *u.Bypass)
	}
	return d
}

// useSet holds at most one Use per LFN regardless of link type, so a file
// cannot be both an input and an output of the same job.
type useSet struct {
	order  []string
	byName map[string]*Use
}

func (s *useSet) has(lfn string) bool {
	_, ok := s.byName[lfn]
	return ok
}

func (s *useSet) add(u *Use) error {
	if s.has(u.File.LFN) {
		return errorf(KindDuplicate, "file %s has already been added to this job", u.File.LFN)
	}
	if s.byName == nil {
		s.byName = make(map[string]*Use)
	}
	s.byName[u.File.LFN] = u
	s.order = append(s.order, u.File.LFN)
	return nil
}

func (s *useSet) list() []*Use {
	out := make([]*Use, 0, len(s.order))
	for _, lfn := range s.order {
		out = append(out, s.byName[lfn])
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
