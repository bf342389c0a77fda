package schema

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
)

// attachmentRef is the set of shapes an attachment takes on the wire. It
// is resolved once, here, into models.Attachment.
type attachmentRef interface {
	normalize() models.Attachment
}

// urlRef is a bare URL string.
type urlRef string

// fileRef is a bare file name string.
type fileRef string

// keyedRef is an object whose keys vary between writers.
type keyedRef struct {
	name string
	url  string
	typ  string
}

func (r urlRef) normalize() models.Attachment {
	u := strings.TrimSpace(string(r))
	name := nameFromURL(u)
	return models.Attachment{Name: name, URL: u, Type: typeFromName(name)}
}

func (r fileRef) normalize() models.Attachment {
	name := strings.TrimSpace(string(r))
	return models.Attachment{Name: name, Type: typeFromName(name)}
}

func (r keyedRef) normalize() models.Attachment {
	a := models.Attachment{Name: r.name, URL: r.url, Type: r.typ}
	if a.Name == "" && a.URL != "" {
		a.Name = nameFromURL(a.URL)
	}
	if a.Type == "" {
		a.Type = typeFromName(a.Name)
	}
	return a
}

var (
	attachmentNameKeys = []string{"name", "filename", "file_name", "fileName", "title", "originalName"}
	attachmentURLKeys  = []string{"url", "href", "link", "src", "location", "path"}
	attachmentTypeKeys = []string{"type", "mime", "mime_type", "mimeType", "content_type", "contentType"}
	attachmentsKeys    = []string{"attachments", "attachment", "files", "file"}
)

// classifyAttachment maps one wire value onto an attachmentRef.
func classifyAttachment(v any) (attachmentRef, bool) {
	switch value := v.(type) {
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return nil, false
		}
		if isURL(s) {
			return urlRef(s), true
		}
		return fileRef(s), true
	case map[string]any:
		ref := keyedRef{
			name: firstString(value, attachmentNameKeys),
			url:  firstString(value, attachmentURLKeys),
			typ:  firstString(value, attachmentTypeKeys),
		}
		if ref.name == "" && ref.url == "" {
			return nil, false
		}
		return ref, true
	}
	return nil, false
}

// decodeAttachments accepts a single attachment, a list of them, or either
// encoded as a JSON string.
func decodeAttachments(v any) (out []models.Attachment, problem string) {
	switch value := v.(type) {
	case nil:
		return nil, ""
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return nil, ""
		}
		if looksLikeJSON(s) {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				if _, isString := decoded.(string); !isString {
					return decodeAttachments(decoded)
				}
			} else {
				problem = "malformed JSON in attachments"
			}
		}
		if ref, ok := classifyAttachment(s); ok {
			return []models.Attachment{ref.normalize()}, problem
		}
		return nil, problem
	case []any:
		for _, elem := range value {
			ref, ok := classifyAttachment(elem)
			if !ok {
				problem = "unrecognized attachment shape"
				continue
			}
			out = append(out, ref.normalize())
		}
		return out, problem
	default:
		ref, ok := classifyAttachment(value)
		if !ok {
			return nil, "unrecognized attachment shape"
		}
		return []models.Attachment{ref.normalize()}, ""
	}
}

func encodeAttachments(list []models.Attachment) []any {
	out := make([]any, 0, len(list))
	for _, a := range list {
		out = append(out, map[string]any{"name": a.Name, "url": a.URL, "type": a.Type})
	}
	return out
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range []string{"http://", "https://", "s3://", "//", "/"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}

func typeFromName(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
