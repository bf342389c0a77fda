package schema

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Mapper converts section payloads between wire and normalized form. All
// methods are total: malformed input degrades to empty or default values
// and is reported through the logger only.
type Mapper struct {
	log      logging.Logger
	newID    func() string
	validate *validator.Validate
}

type Option func(*Mapper)

// WithIDGenerator replaces uuid.NewString as the source of sub-item and
// change entry ids.
func WithIDGenerator(fn func() string) Option {
	return func(m *Mapper) { m.newID = fn }
}

func NewMapper(log logging.Logger, opts ...Option) *Mapper {
	if log == nil {
		log = logging.Discard()
	}
	m := &Mapper{
		log:      log,
		newID:    uuid.NewString,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// metaKeys are server-managed keys that carry no section content.
var metaKeys = map[string]struct{}{
	"id": {}, "_id": {}, "trial_id": {}, "trialId": {},
	"created_at": {}, "updated_at": {}, "createdAt": {}, "updatedAt": {},
}

var (
	itemIDKeys      = []string{"id", "_id", "uuid"}
	itemVisibleKeys = []string{"isVisible", "is_visible", "visible"}
	rowListKeys     = []string{"items", "rows", "data", "records"}
	rowTypeKeys     = []string{"type", "source_type", "category"}
)

// FromWire normalizes one section's wire value. wire may be an object, a
// JSON string, a list of rows (replace sections) or nil.
func (m *Mapper) FromWire(ctx context.Context, key models.SectionKey, wire any) *models.SectionState {
	sec, ok := Lookup(key)
	if !ok {
		m.log.Warn(ctx, "unknown section", "section", key)
		return models.NewSectionState()
	}

	obj := m.wireObject(ctx, sec, wire)
	state := models.NewSectionState()
	seen := make(map[string]struct{})

	for _, f := range sec.Fields {
		raw, k, found := lookup(obj, f.Name, f.Aliases)
		if found {
			seen[k] = struct{}{}
		}
		m.decodeField(ctx, sec.Key, f.Name, f, raw, state.Fields, state.Lists)
	}

	for _, c := range sec.Collections {
		raw, k, found := lookup(obj, c.Name, c.Aliases)
		if found {
			seen[k] = struct{}{}
		}
		items := m.decodeCollection(ctx, sec.Key, c, raw)
		if len(items) == 0 {
			items = []models.SubItem{m.template(c)}
		}
		state.Collections[c.Name] = items
	}

	if sec.ChangeLog {
		raw, k, found := lookup(obj, ChangeLogKey, changeLogAliases)
		if found {
			seen[k] = struct{}{}
		}
		entries, problems := m.decodeChangeLog(raw)
		for _, p := range problems {
			m.anomaly(ctx, sec.Key, ChangeLogKey, p, nil)
		}
		state.ChangeLog = entries
	}

	m.reportUnknown(ctx, sec.Key, obj, seen)
	return state
}

// ToWire serializes state for the record store. Dates use WireDateLayout,
// lists use the reserved delimiter, and only visible sub-items with
// content are emitted. A nil state serializes the section defaults.
func (m *Mapper) ToWire(ctx context.Context, key models.SectionKey, state *models.SectionState) models.Payload {
	sec, ok := Lookup(key)
	if !ok {
		m.log.Warn(ctx, "unknown section", "section", key)
		return models.Payload{}
	}
	if state == nil {
		state = m.Default(key)
	}

	out := models.Payload{}
	for _, f := range sec.Fields {
		if f.Kind.IsList() {
			out[f.Name] = encodeList(state.Lists[f.Name])
			continue
		}
		out[f.Name] = m.encodeScalar(ctx, sec.Key, f.Name, f, state.Fields[f.Name])
	}

	for _, c := range sec.Collections {
		rows := make([]any, 0, len(state.Collections[c.Name]))
		for _, it := range state.Collections[c.Name] {
			if !it.Persistable() {
				continue
			}
			rows = append(rows, m.encodeItem(ctx, sec.Key, c, it))
		}
		out[c.Name] = rows
	}

	if sec.ChangeLog {
		out[ChangeLogKey] = encodeChangeLog(state.ChangeLog)
	}
	return out
}

// ToRows returns the create-call bodies of a replace section: one per
// persistable sub-item. Upsert sections yield nil.
func (m *Mapper) ToRows(ctx context.Context, key models.SectionKey, trialID string, state *models.SectionState) []models.Payload {
	sec, ok := Lookup(key)
	if !ok || sec.Save != SaveReplace {
		return nil
	}

	wire := m.ToWire(ctx, key, state)
	rows := make([]models.Payload, 0)
	for _, c := range sec.Collections {
		items, _ := wire[c.Name].([]any)
		for _, raw := range items {
			item, _ := raw.(map[string]any)
			if sec.Rows == RowTyped {
				rows = append(rows, models.Payload{"trial_id": trialID, "type": c.Name, "data": item})
				continue
			}
			row := make(models.Payload, len(item)+1)
			for k, v := range item {
				row[k] = v
			}
			row["trial_id"] = trialID
			rows = append(rows, row)
		}
	}
	return rows
}

// Default returns the empty state of key: blank fields, empty lists and
// one template sub-item per collection.
func (m *Mapper) Default(key models.SectionKey) *models.SectionState {
	return m.FromWire(context.Background(), key, nil)
}

// NewSubItem returns an empty, visible sub-item for collection.
func (m *Mapper) NewSubItem(key models.SectionKey, collection string) (models.SubItem, bool) {
	sec, ok := Lookup(key)
	if !ok {
		return models.SubItem{}, false
	}
	c, ok := sec.Collection(collection)
	if !ok {
		return models.SubItem{}, false
	}
	return m.template(c), true
}

// Conform validates a state that did not come from FromWire (typically a
// draft written by an older build) against the section schema: unknown
// fields are dropped, missing ones added, values re-normalized, and empty
// collections get their template row.
func (m *Mapper) Conform(ctx context.Context, key models.SectionKey, state *models.SectionState) *models.SectionState {
	sec, ok := Lookup(key)
	if !ok {
		m.log.Warn(ctx, "unknown section", "section", key)
		return models.NewSectionState()
	}
	if state == nil {
		return m.Default(key)
	}

	out := models.NewSectionState()
	for _, f := range sec.Fields {
		if f.Kind.IsList() {
			out.Lists[f.Name] = cleanItems(state.Lists[f.Name])
			continue
		}
		m.decodeField(ctx, sec.Key, f.Name, f, state.Fields[f.Name], out.Fields, out.Lists)
	}

	for _, c := range sec.Collections {
		items := make([]models.SubItem, 0, len(state.Collections[c.Name]))
		for _, it := range state.Collections[c.Name] {
			items = append(items, m.conformItem(ctx, sec.Key, c, it))
		}
		if len(items) == 0 {
			items = append(items, m.template(c))
		}
		out.Collections[c.Name] = items
	}

	if sec.ChangeLog {
		for _, e := range state.ChangeLog {
			if err := m.validate.Struct(e); err != nil {
				m.anomaly(ctx, sec.Key, ChangeLogKey, "invalid change log entry: "+err.Error(), e.ID)
				continue
			}
			out.ChangeLog = append(out.ChangeLog, e)
		}
	}
	return out
}

func (m *Mapper) wireObject(ctx context.Context, sec Section, wire any) map[string]any {
	switch v := wire.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		if sec.Save == SaveReplace {
			if rows, ok := rowList(v); ok {
				return m.groupRows(ctx, sec, rows)
			}
		}
		return v
	case []any:
		if sec.Save == SaveReplace {
			return m.groupRows(ctx, sec, v)
		}
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj
			}
		}
		m.anomaly(ctx, sec.Key, "", "section payload is a list", v)
		return map[string]any{}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return map[string]any{}
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			m.anomaly(ctx, sec.Key, "", "section payload is not JSON", s)
			return map[string]any{}
		}
		if _, nested := decoded.(string); nested {
			m.anomaly(ctx, sec.Key, "", "section payload is a JSON string", s)
			return map[string]any{}
		}
		return m.wireObject(ctx, sec, decoded)
	default:
		m.anomaly(ctx, sec.Key, "", "unexpected section payload", v)
		return map[string]any{}
	}
}

func rowList(obj map[string]any) ([]any, bool) {
	for _, k := range rowListKeys {
		if rows, ok := obj[k].([]any); ok {
			return rows, true
		}
	}
	return nil, false
}

// groupRows turns the row list of a replace section into the grouped
// object form, one key per collection.
func (m *Mapper) groupRows(ctx context.Context, sec Section, rows []any) map[string]any {
	out := map[string]any{}
	if len(sec.Collections) == 0 {
		return out
	}
	if sec.Rows == RowFlat {
		out[sec.Collections[0].Name] = rows
		return out
	}

	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			m.anomaly(ctx, sec.Key, "", "row is not an object", r)
			continue
		}
		typ := firstString(row, rowTypeKeys)
		c, ok := sec.collectionFor(typ)
		if !ok {
			m.anomaly(ctx, sec.Key, "type", "unknown row type", typ)
			continue
		}

		item := map[string]any{}
		switch data := row["data"].(type) {
		case map[string]any:
			for k, v := range data {
				item[k] = v
			}
		case string:
			if err := json.Unmarshal([]byte(data), &item); err != nil {
				m.anomaly(ctx, sec.Key, c.Name, "row data is not a JSON object", data)
				continue
			}
		default:
			for k, v := range row {
				item[k] = v
			}
			for _, k := range rowTypeKeys {
				delete(item, k)
			}
		}
		if _, has := item["id"]; !has && row["id"] != nil {
			item["id"] = row["id"]
		}

		existing, _ := out[c.Name].([]any)
		out[c.Name] = append(existing, item)
	}
	return out
}

// decodeField normalizes one scalar or list value into fields or lists.
// List values of item fields (lists == nil) are flattened into text.
func (m *Mapper) decodeField(ctx context.Context, section models.SectionKey, path string, f Field, raw any, fields map[string]string, lists map[string][]string) {
	switch f.Kind {
	case KindDate:
		s, ok := normalizeDate(raw)
		if !ok {
			m.anomaly(ctx, section, path, "unparseable date", raw)
		}
		fields[f.Name] = s
	case KindNumber:
		s, ok := normalizeNumber(raw)
		if !ok {
			m.anomaly(ctx, section, path, "not a finite number", raw)
		}
		fields[f.Name] = s
	case KindList, KindDrugList:
		items, problem := decodeList(raw, f)
		if problem != "" {
			m.anomaly(ctx, section, path, problem, raw)
		}
		if lists == nil {
			fields[f.Name] = strings.Join(items, ", ")
			return
		}
		lists[f.Name] = items
	default:
		s, ok := normalizeText(raw)
		if !ok {
			m.anomaly(ctx, section, path, "structured value in text field", raw)
		}
		fields[f.Name] = s
	}
}

func (m *Mapper) encodeScalar(ctx context.Context, section models.SectionKey, path string, f Field, value string) string {
	if f.Kind != KindDate {
		return value
	}
	s, ok := wireDate(value)
	if !ok {
		m.anomaly(ctx, section, path, "unparseable date dropped on save", value)
	}
	return s
}

func (m *Mapper) decodeCollection(ctx context.Context, section models.SectionKey, c Collection, raw any) []models.SubItem {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			m.anomaly(ctx, section, c.Name, "malformed JSON in collection", s)
			return nil
		}
		if _, nested := decoded.(string); nested {
			m.anomaly(ctx, section, c.Name, "collection is a JSON string", s)
			return nil
		}
		return m.decodeCollection(ctx, section, c, decoded)
	case []any:
		items := make([]models.SubItem, 0, len(v))
		for _, elem := range v {
			switch e := elem.(type) {
			case map[string]any:
				items = append(items, m.decodeItem(ctx, section, c, e))
			case string:
				if strings.TrimSpace(e) == "" {
					continue
				}
				items = append(items, m.textItem(c, e))
			default:
				m.anomaly(ctx, section, c.Name, "unexpected sub-item", e)
			}
		}
		return items
	case map[string]any:
		if rows, ok := rowList(v); ok {
			return m.decodeCollection(ctx, section, c, rows)
		}
		return []models.SubItem{m.decodeItem(ctx, section, c, v)}
	default:
		m.anomaly(ctx, section, c.Name, "unexpected collection value", v)
		return nil
	}
}

func (m *Mapper) decodeItem(ctx context.Context, section models.SectionKey, c Collection, obj map[string]any) models.SubItem {
	item := models.SubItem{Fields: make(map[string]string, len(c.Fields)), Visible: true}

	for _, k := range itemIDKeys {
		if id := idString(obj[k]); id != "" {
			item.ID = id
			break
		}
	}
	if item.ID == "" {
		item.ID = m.newID()
	}

	for _, k := range itemVisibleKeys {
		if v, ok := obj[k]; ok {
			item.Visible = parseVisible(v)
			break
		}
	}

	for _, f := range c.Fields {
		raw, _, _ := lookup(obj, f.Name, f.Aliases)
		m.decodeField(ctx, section, c.Name+"."+f.Name, f, raw, item.Fields, nil)
	}

	if c.Attachments {
		for _, k := range attachmentsKeys {
			raw, ok := obj[k]
			if !ok {
				continue
			}
			atts, problem := decodeAttachments(raw)
			if problem != "" {
				m.anomaly(ctx, section, c.Name+".attachments", problem, raw)
			}
			item.Attachments = m.validAttachments(ctx, section, c.Name, atts)
			break
		}
	}
	return item
}

// textItem builds a sub-item from a bare string row, placing the text in
// the collection's content field (or its first text field).
func (m *Mapper) textItem(c Collection, s string) models.SubItem {
	item := m.template(c)
	target := ""
	for _, f := range c.Fields {
		if f.Name == "content" {
			target = f.Name
			break
		}
		if target == "" && f.Kind == KindText {
			target = f.Name
		}
	}
	if target != "" {
		item.Fields[target] = strings.TrimSpace(s)
	}
	return item
}

func (m *Mapper) encodeItem(ctx context.Context, section models.SectionKey, c Collection, it models.SubItem) map[string]any {
	out := map[string]any{"id": it.ID, "isVisible": it.Visible}
	for _, f := range c.Fields {
		out[f.Name] = m.encodeScalar(ctx, section, c.Name+"."+f.Name, f, it.Fields[f.Name])
	}
	if c.Attachments {
		out["attachments"] = encodeAttachments(it.Attachments)
	}
	return out
}

func (m *Mapper) conformItem(ctx context.Context, section models.SectionKey, c Collection, it models.SubItem) models.SubItem {
	out := models.SubItem{ID: it.ID, Visible: it.Visible, Fields: make(map[string]string, len(c.Fields))}
	if out.ID == "" {
		out.ID = m.newID()
	}
	for _, f := range c.Fields {
		m.decodeField(ctx, section, c.Name+"."+f.Name, f, it.Fields[f.Name], out.Fields, nil)
	}
	if c.Attachments {
		out.Attachments = m.validAttachments(ctx, section, c.Name, it.Attachments)
	}
	return out
}

func (m *Mapper) validAttachments(ctx context.Context, section models.SectionKey, collection string, atts []models.Attachment) []models.Attachment {
	var out []models.Attachment
	for _, a := range atts {
		if err := m.validate.Struct(a); err != nil {
			m.anomaly(ctx, section, collection+".attachments", "invalid attachment: "+err.Error(), a.URL)
			continue
		}
		out = append(out, a)
	}
	return out
}

func (m *Mapper) template(c Collection) models.SubItem {
	item := models.SubItem{ID: m.newID(), Visible: true, Fields: make(map[string]string, len(c.Fields))}
	for _, f := range c.Fields {
		item.Fields[f.Name] = ""
	}
	return item
}

func (m *Mapper) anomaly(ctx context.Context, section models.SectionKey, field, problem string, value any) {
	m.log.Warn(ctx, "schema anomaly recovered",
		"section", section,
		"field", field,
		"problem", problem,
		"value", truncate(Stringify(value), 120),
	)
}

func (m *Mapper) reportUnknown(ctx context.Context, section models.SectionKey, obj map[string]any, seen map[string]struct{}) {
	var unknown []string
	for k := range obj {
		if _, ok := seen[k]; ok {
			continue
		}
		if _, ok := metaKeys[k]; ok {
			continue
		}
		unknown = append(unknown, k)
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	m.log.Debug(ctx, "ignoring unknown wire keys", "section", section, "keys", unknown)
}
