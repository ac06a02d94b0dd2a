package memory

import (
	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

type clientTable struct{ s *Store }

func (t clientTable) List() ([]*types.Client, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	out := make([]*types.Client, 0, len(t.s.clients))
	for _, c := range t.s.clients {
		out = append(out, c.Clone())
	}
	query.SortClients(out)
	return out, nil
}

func (t clientTable) Get(id string) (*types.Client, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	c, ok := t.s.clients[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return c.Clone(), nil
}

func (t clientTable) Save(c *types.Client) (string, error) {
	if c == nil {
		return "", types.ErrInvalidData
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return "", err
	}
	if err := assign(&c.ID); err != nil {
		return "", err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = t.s.now().UTC()
	}
	c.Normalize()
	t.s.clients[c.ID] = c.Clone()
	return c.ID, nil
}

// Delete removes the client with its notes and files.
func (t clientTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return err
	}
	if _, ok := t.s.clients[id]; !ok {
		return types.ErrNotFound
	}
	for nid, n := range t.s.notes {
		if n.ClientID == id {
			delete(t.s.notes, nid)
		}
	}
	for fid, f := range t.s.files {
		if f.ClientID == id {
			delete(t.s.files, fid)
		}
	}
	delete(t.s.clients, id)
	return nil
}

type noteTable struct{ s *Store }

func (t noteTable) List() ([]*types.Note, error) {
	return t.list(func(*types.Note) bool { return true })
}

func (t noteTable) ListByClient(clientID string) ([]*types.Note, error) {
	if clientID == "" {
		return nil, types.ErrInvalidID
	}
	return t.list(func(n *types.Note) bool { return n.ClientID == clientID })
}

func (t noteTable) list(keep func(*types.Note) bool) ([]*types.Note, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	var out []*types.Note
	for _, n := range t.s.notes {
		if keep(n) {
			out = append(out, n.Clone())
		}
	}
	query.SortNotes(out)
	return out, nil
}

func (t noteTable) Get(id string) (*types.Note, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	n, ok := t.s.notes[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return n.Clone(), nil
}

func (t noteTable) Save(n *types.Note) (string, error) {
	if n == nil {
		return "", types.ErrInvalidData
	}
	if err := n.Validate(); err != nil {
		return "", err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return "", err
	}
	if err := assign(&n.ID); err != nil {
		return "", err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = t.s.now().UTC()
	}
	t.s.notes[n.ID] = n.Clone()
	return n.ID, nil
}

func (t noteTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return err
	}
	if _, ok := t.s.notes[id]; !ok {
		return types.ErrNotFound
	}
	delete(t.s.notes, id)
	return nil
}

type fileTable struct{ s *Store }

func (t fileTable) List() ([]*types.File, error) {
	return t.list(func(*types.File) bool { return true })
}

func (t fileTable) ListByClient(clientID string) ([]*types.File, error) {
	if clientID == "" {
		return nil, types.ErrInvalidID
	}
	return t.list(func(f *types.File) bool { return f.ClientID == clientID })
}

func (t fileTable) list(keep func(*types.File) bool) ([]*types.File, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	var out []*types.File
	for _, f := range t.s.files {
		if keep(f) {
			out = append(out, f.Clone())
		}
	}
	query.SortFiles(out)
	return out, nil
}

func (t fileTable) Get(id string) (*types.File, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	f, ok := t.s.files[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return f.Clone(), nil
}

func (t fileTable) Save(f *types.File) (string, error) {
	if f == nil {
		return "", types.ErrInvalidData
	}
	if err := f.Validate(); err != nil {
		return "", err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return "", err
	}
	if err := assign(&f.ID); err != nil {
		return "", err
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = t.s.now().UTC()
	}
	t.s.files[f.ID] = f.Clone()
	return f.ID, nil
}

func (t fileTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return err
	}
	if _, ok := t.s.files[id]; !ok {
		return types.ErrNotFound
	}
	delete(t.s.files, id)
	return nil
}

type mergedTable struct{ s *Store }

func (t mergedTable) List() ([]*types.MergedDocument, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	out := make([]*types.MergedDocument, 0, len(t.s.merged))
	for _, m := range t.s.merged {
		out = append(out, m.Clone())
	}
	query.SortMergedDocuments(out)
	return out, nil
}

func (t mergedTable) Get(id string) (*types.MergedDocument, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	m, ok := t.s.merged[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return m.Clone(), nil
}

func (t mergedTable) Save(m *types.MergedDocument) (string, error) {
	if m == nil {
		return "", types.ErrInvalidData
	}
	if err := m.Validate(); err != nil {
		return "", err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return "", err
	}
	if err := assign(&m.ID); err != nil {
		return "", err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = t.s.now().UTC()
	}
	m.Normalize()
	t.s.merged[m.ID] = m.Clone()
	return m.ID, nil
}

func (t mergedTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return err
	}
	if _, ok := t.s.merged[id]; !ok {
		return types.ErrNotFound
	}
	delete(t.s.merged, id)
	return nil
}

type tagTable struct{ s *Store }

func (t tagTable) List() ([]*types.Tag, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	out := make([]*types.Tag, 0, len(t.s.tags))
	for _, tag := range t.s.tags {
		out = append(out, tag.Clone())
	}
	query.SortTags(out)
	return out, nil
}

func (t tagTable) Get(id string) (*types.Tag, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return nil, err
	}
	tag, ok := t.s.tags[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return tag.Clone(), nil
}

func (t tagTable) Save(tag *types.Tag) (string, error) {
	if tag == nil {
		return "", types.ErrInvalidData
	}
	if err := tag.Validate(); err != nil {
		return "", err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return "", err
	}
	if err := assign(&tag.ID); err != nil {
		return "", err
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = t.s.now().UTC()
	}
	t.s.tags[tag.ID] = tag.Clone()
	return tag.ID, nil
}

// Delete removes the tag and strips it from the clients that carry it.
func (t tagTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return err
	}
	if _, ok := t.s.tags[id]; !ok {
		return types.ErrNotFound
	}
	delete(t.s.tags, id)
	for _, c := range t.s.clients {
		c.RemoveTag(id)
	}
	return nil
}

type settingsTable struct{ s *Store }

func (t settingsTable) Credentials() (types.Credentials, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return types.Credentials{}, err
	}
	return *t.s.creds, nil
}

func (t settingsTable) SetCredentials(c types.Credentials) error {
	if err := c.Validate(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return err
	}
	t.s.creds = &c
	return nil
}

func (t settingsTable) OptionLists() (types.OptionLists, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.readable(); err != nil {
		return types.OptionLists{}, err
	}
	return t.s.options.Clone(), nil
}

func (t settingsTable) SetOptionLists(o types.OptionLists) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.readable(); err != nil {
		return err
	}
	cp := o.Clone()
	t.s.options = &cp
	return nil
}
