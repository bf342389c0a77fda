package editor

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
)

// Mutation is one user edit. Applying a mutation that would not change the
// state is a no-op and records nothing.
type Mutation interface {
	Section() models.SectionKey
	apply(e *env) ([]models.ChangeLogEntry, error)
}

// env is what a mutation works on: the target section's descriptor and
// state (already cloned by the session).
type env struct {
	sec    schema.Section
	state  *models.SectionState
	mapper *schema.Mapper
	rec    *Recorder
	// newItem is set by AddItem.
	newItem string
}

func (e *env) field(name string) (schema.Field, error) {
	f, ok := e.sec.Field(name)
	if !ok {
		return schema.Field{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, e.sec.Key, name)
	}
	return f, nil
}

func (e *env) listField(name string) (schema.Field, error) {
	f, err := e.field(name)
	if err != nil {
		return f, err
	}
	if !f.Kind.IsList() {
		return f, fmt.Errorf("%w: %s.%s is not a list", ErrUnknownField, e.sec.Key, name)
	}
	return f, nil
}

func (e *env) collection(name string) (schema.Collection, error) {
	c, ok := e.sec.Collection(name)
	if !ok {
		return c, fmt.Errorf("%w: %s.%s", ErrUnknownCollection, e.sec.Key, name)
	}
	return c, nil
}

func (e *env) item(collection, id string) (schema.Collection, int, error) {
	c, err := e.collection(collection)
	if err != nil {
		return c, -1, err
	}
	i := e.state.FindItem(collection, id)
	if i < 0 {
		return c, -1, fmt.Errorf("%w: %s", ErrUnknownItem, ItemPath(collection, id, ""))
	}
	return c, i, nil
}

func normalize(f schema.Field, v string) (string, error) {
	s, ok := schema.NormalizeInput(f, v)
	if !ok {
		return "", fmt.Errorf("%w: %q for %s", ErrInvalidValue, v, f.Name)
	}
	return s, nil
}

// SetField replaces a scalar field.
type SetField struct {
	Key   models.SectionKey
	Field string
	Value string
}

func (m SetField) Section() models.SectionKey { return m.Key }

func (m SetField) apply(e *env) ([]models.ChangeLogEntry, error) {
	f, err := e.field(m.Field)
	if err != nil {
		return nil, err
	}
	if f.Kind.IsList() {
		return SetList{Key: m.Key, Field: m.Field, Values: splitInput(m.Value)}.apply(e)
	}
	v, err := normalize(f, m.Value)
	if err != nil {
		return nil, err
	}
	old := e.state.Fields[m.Field]
	if old == v {
		return nil, nil
	}
	e.state.Fields[m.Field] = v
	return []models.ChangeLogEntry{e.rec.Entry(m.Key, m.Field, models.ActionChanged, old, v)}, nil
}

// splitInput splits user input into list items. The first separator
// present wins: "|||", then ";", then ",". A trailing ";" keeps a single
// item that holds commas.
func splitInput(s string) []string {
	for _, sep := range []string{schema.ReservedDelimiter, ";"} {
		if strings.Contains(s, sep) {
			return strings.Split(s, sep)
		}
	}
	return strings.Split(s, ",")
}

// SetList replaces every value of a list field.
type SetList struct {
	Key    models.SectionKey
	Field  string
	Values []string
}

func (m SetList) Section() models.SectionKey { return m.Key }

func (m SetList) apply(e *env) ([]models.ChangeLogEntry, error) {
	if _, err := e.listField(m.Field); err != nil {
		return nil, err
	}
	next := schema.CleanList(m.Values)
	old := e.state.Lists[m.Field]
	if slices.Equal(old, next) {
		return nil, nil
	}
	e.state.Lists[m.Field] = next
	return []models.ChangeLogEntry{e.rec.Entry(m.Key, m.Field, models.ActionChanged, old, next)}, nil
}

// AddListValue appends one value to a list field. Values already present
// are not added twice.
type AddListValue struct {
	Key   models.SectionKey
	Field string
	Value string
}

func (m AddListValue) Section() models.SectionKey { return m.Key }

func (m AddListValue) apply(e *env) ([]models.ChangeLogEntry, error) {
	if _, err := e.listField(m.Field); err != nil {
		return nil, err
	}
	v := strings.TrimSpace(m.Value)
	if v == "" || slices.Contains(e.state.Lists[m.Field], v) {
		return nil, nil
	}
	e.state.Lists[m.Field] = append(e.state.Lists[m.Field], v)
	return []models.ChangeLogEntry{e.rec.Entry(m.Key, m.Field, models.ActionAdded, nil, v)}, nil
}

// RemoveListValue removes the first occurrence of a value.
type RemoveListValue struct {
	Key   models.SectionKey
	Field string
	Value string
}

func (m RemoveListValue) Section() models.SectionKey { return m.Key }

func (m RemoveListValue) apply(e *env) ([]models.ChangeLogEntry, error) {
	if _, err := e.listField(m.Field); err != nil {
		return nil, err
	}
	v := strings.TrimSpace(m.Value)
	list := e.state.Lists[m.Field]
	for i, it := range list {
		if it != v {
			continue
		}
		next := make([]string, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		e.state.Lists[m.Field] = next
		return []models.ChangeLogEntry{e.rec.Entry(m.Key, m.Field, models.ActionRemoved, v, nil)}, nil
	}
	return nil, nil
}

// AddItem appends a new visible sub-item. An empty ID is generated.
type AddItem struct {
	Key        models.SectionKey
	Collection string
	ID         string
	Fields     map[string]string
}

func (m AddItem) Section() models.SectionKey { return m.Key }

func (m AddItem) apply(e *env) ([]models.ChangeLogEntry, error) {
	c, err := e.collection(m.Collection)
	if err != nil {
		return nil, err
	}
	item, _ := e.mapper.NewSubItem(m.Key, m.Collection)
	if m.ID != "" {
		if e.state.FindItem(m.Collection, m.ID) >= 0 {
			return nil, fmt.Errorf("%w: %s already exists", ErrInvalidValue, ItemPath(m.Collection, m.ID, ""))
		}
		item.ID = m.ID
	}
	for name, raw := range m.Fields {
		f, ok := c.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.Collection, name)
		}
		v, err := normalize(f, raw)
		if err != nil {
			return nil, err
		}
		item.Fields[name] = v
	}

	e.state.Collections[m.Collection] = append(e.state.Collections[m.Collection], item)
	e.newItem = item.ID
	return []models.ChangeLogEntry{
		e.rec.Entry(m.Key, ItemPath(m.Collection, item.ID, ""), models.ActionAdded, nil, summarize(item)),
	}, nil
}

// RemoveItem deletes a sub-item. A collection left empty gets a fresh
// template row.
type RemoveItem struct {
	Key        models.SectionKey
	Collection string
	ItemID     string
}

func (m RemoveItem) Section() models.SectionKey { return m.Key }

func (m RemoveItem) apply(e *env) ([]models.ChangeLogEntry, error) {
	_, i, err := e.item(m.Collection, m.ItemID)
	if err != nil {
		return nil, err
	}
	items := e.state.Collections[m.Collection]
	removed := items[i]

	next := make([]models.SubItem, 0, len(items))
	next = append(next, items[:i]...)
	next = append(next, items[i+1:]...)
	if len(next) == 0 {
		tpl, _ := e.mapper.NewSubItem(m.Key, m.Collection)
		next = append(next, tpl)
	}
	e.state.Collections[m.Collection] = next
	return []models.ChangeLogEntry{
		e.rec.Entry(m.Key, ItemPath(m.Collection, removed.ID, ""), models.ActionRemoved, summarize(removed), nil),
	}, nil
}

// SetItemVisible shows or hides a sub-item. Hidden items stay in the
// session and drafts but are not saved.
type SetItemVisible struct {
	Key        models.SectionKey
	Collection string
	ItemID     string
	Visible    bool
}

func (m SetItemVisible) Section() models.SectionKey { return m.Key }

func (m SetItemVisible) apply(e *env) ([]models.ChangeLogEntry, error) {
	_, i, err := e.item(m.Collection, m.ItemID)
	if err != nil {
		return nil, err
	}
	it := &e.state.Collections[m.Collection][i]
	if it.Visible == m.Visible {
		return nil, nil
	}
	old := it.Visible
	it.Visible = m.Visible
	return []models.ChangeLogEntry{
		e.rec.Entry(m.Key, ItemPath(m.Collection, m.ItemID, "isVisible"), models.ActionChanged, old, m.Visible),
	}, nil
}

// SetItemField replaces one field of a sub-item.
type SetItemField struct {
	Key        models.SectionKey
	Collection string
	ItemID     string
	Field      string
	Value      string
}

func (m SetItemField) Section() models.SectionKey { return m.Key }

func (m SetItemField) apply(e *env) ([]models.ChangeLogEntry, error) {
	c, i, err := e.item(m.Collection, m.ItemID)
	if err != nil {
		return nil, err
	}
	f, ok := c.Field(m.Field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.Collection, m.Field)
	}
	v, err := normalize(f, m.Value)
	if err != nil {
		return nil, err
	}
	it := &e.state.Collections[m.Collection][i]
	old := it.Fields[m.Field]
	if old == v {
		return nil, nil
	}
	it.Fields[m.Field] = v
	return []models.ChangeLogEntry{
		e.rec.Entry(m.Key, ItemPath(m.Collection, m.ItemID, m.Field), models.ActionChanged, old, v),
	}, nil
}

// AddAttachment attaches an uploaded file to a sub-item.
type AddAttachment struct {
	Key        models.SectionKey
	Collection string
	ItemID     string
	Attachment models.Attachment
}

func (m AddAttachment) Section() models.SectionKey { return m.Key }

func (m AddAttachment) apply(e *env) ([]models.ChangeLogEntry, error) {
	c, i, err := e.item(m.Collection, m.ItemID)
	if err != nil {
		return nil, err
	}
	if !c.Attachments {
		return nil, fmt.Errorf("%w: %s takes no attachments", ErrInvalidValue, m.Collection)
	}
	a := m.Attachment
	if a.URL == "" && a.Name == "" {
		return nil, fmt.Errorf("%w: attachment needs a url or a name", ErrInvalidValue)
	}
	it := &e.state.Collections[m.Collection][i]
	for _, existing := range it.Attachments {
		if existing == a {
			return nil, nil
		}
	}
	it.Attachments = append(it.Attachments, a)
	return []models.ChangeLogEntry{
		e.rec.Entry(m.Key, ItemPath(m.Collection, m.ItemID, "attachments"), models.ActionAdded, nil, attachmentLabel(a)),
	}, nil
}

// RemoveAttachment detaches the attachment whose URL, or name when it has
// no URL, equals Ref.
type RemoveAttachment struct {
	Key        models.SectionKey
	Collection string
	ItemID     string
	Ref        string
}

func (m RemoveAttachment) Section() models.SectionKey { return m.Key }

func (m RemoveAttachment) apply(e *env) ([]models.ChangeLogEntry, error) {
	_, i, err := e.item(m.Collection, m.ItemID)
	if err != nil {
		return nil, err
	}
	it := &e.state.Collections[m.Collection][i]
	for j, a := range it.Attachments {
		if a.URL != m.Ref && (a.URL != "" || a.Name != m.Ref) {
			continue
		}
		next := make([]models.Attachment, 0, len(it.Attachments)-1)
		next = append(next, it.Attachments[:j]...)
		next = append(next, it.Attachments[j+1:]...)
		it.Attachments = next
		return []models.ChangeLogEntry{
			e.rec.Entry(m.Key, ItemPath(m.Collection, m.ItemID, "attachments"), models.ActionRemoved, attachmentLabel(a), nil),
		}, nil
	}
	return nil, fmt.Errorf("%w: no attachment %q on %s", ErrUnknownItem, m.Ref, ItemPath(m.Collection, m.ItemID, ""))
}

// FindAttachment returns the attachment of a sub-item matched the same way
// RemoveAttachment matches.
func FindAttachment(st *models.SectionState, collection, itemID, ref string) (models.Attachment, bool) {
	i := st.FindItem(collection, itemID)
	if i < 0 {
		return models.Attachment{}, false
	}
	for _, a := range st.Collections[collection][i].Attachments {
		if a.URL == ref || (a.URL == "" && a.Name == ref) {
			return a, true
		}
	}
	return models.Attachment{}, false
}

func attachmentLabel(a models.Attachment) string {
	if a.URL != "" {
		return a.URL
	}
	return a.Name
}

// summarize renders the non-blank fields of an item as "k=v" pairs in key
// order.
func summarize(it models.SubItem) string {
	keys := make([]string, 0, len(it.Fields))
	for k, v := range it.Fields {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+it.Fields[k])
	}
	return strings.Join(parts, "; ")
}
