package model

import "github.com/google/uuid"

// ShowModel is the full persisted show: its name, cue forest, and settings.
// It is the concrete shape behind the readable-cue-tree collaborator
// interface the playback core depends on (current file path, lookup by id).
type ShowModel struct {
	Name     string       `json:"name"`
	Cues     []*Cue       `json:"cues"`
	Settings ShowSettings `json:"settings"`
}

// NewShowModel returns an empty show with default settings.
func NewShowModel() *ShowModel {
	return &ShowModel{Settings: DefaultShowSettings()}
}

// FindByID searches the whole forest (including inside Group children) for
// a cue with the given id.
func (m *ShowModel) FindByID(id uuid.UUID) (*Cue, bool) {
	for _, c := range m.Cues {
		if found := findByID(c, id); found != nil {
			return found, true
		}
	}
	return nil, false
}

func findByID(c *Cue, id uuid.UUID) *Cue {
	if c.ID == id {
		return c
	}
	if g, ok := c.Params.(GroupParam); ok {
		for _, child := range g.Children {
			if found := findByID(child, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindWithParent returns the cue and its immediate parent (nil if the cue
// is top-level). The bool reports whether the cue was found at all.
func (m *ShowModel) FindWithParent(id uuid.UUID) (cue *Cue, parent *Cue, found bool) {
	for _, c := range m.Cues {
		if c.ID == id {
			return c, nil, true
		}
		if found, p := findWithParent(c, id); found != nil {
			return found, p, true
		}
	}
	return nil, nil, false
}

func findWithParent(c *Cue, id uuid.UUID) (*Cue, *Cue) {
	g, ok := c.Params.(GroupParam)
	if !ok {
		return nil, nil
	}
	for _, child := range g.Children {
		if child.ID == id {
			return child, c
		}
		if found, p := findWithParent(child, id); found != nil {
			return found, p
		}
	}
	return nil, nil
}

// ParentOf returns the immediate parent Group cue of id, if any.
func (m *ShowModel) ParentOf(id uuid.UUID) (*Cue, bool) {
	_, parent, found := m.FindWithParent(id)
	if !found || parent == nil {
		return nil, false
	}
	return parent, true
}

// ChildrenOf returns the direct children of id if it is a Group cue.
func (m *ShowModel) ChildrenOf(id uuid.UUID) ([]*Cue, bool) {
	cue, found := m.FindByID(id)
	if !found {
		return nil, false
	}
	g, ok := cue.Params.(GroupParam)
	if !ok {
		return nil, false
	}
	return g.Children, true
}

// TopLevelIndex returns the index of id within the top-level cue list, or
// -1 if id is not a top-level cue (e.g. it lives inside a Group).
func (m *ShowModel) TopLevelIndex(id uuid.UUID) int {
	for i, c := range m.Cues {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// AudioDescendants collects every Audio-kind cue reachable from root
// (root itself if it is Audio, or recursively through Group children).
// Used by Fade cues that target a Group: every Audio descendant receives
// the volume fade.
func AudioDescendants(root *Cue) []*Cue {
	var out []*Cue
	collectAudioDescendants(root, &out)
	return out
}

func collectAudioDescendants(c *Cue, out *[]*Cue) {
	switch p := c.Params.(type) {
	case AudioParam:
		*out = append(*out, c)
	case GroupParam:
		for _, child := range p.Children {
			collectAudioDescendants(child, out)
		}
	}
}
