package assets

import (
	"encoding/json"
	"strconv"
	"strings"
)

// volatileFields are server-assigned and never sent back.
var volatileFields = []string{"id", "author_handle", "created_at", "modified_at"}

// Definition is the JSON body of one asset as stored in a template.
type Definition map[string]any

// Name returns the identifying title or name for kind, exactly as written.
// Live assets are matched against it verbatim.
func (d Definition) Name(kind Kind) string {
	s, _ := d[kind.NameField].(string)
	return s
}

// ID returns the embedded remote id, or "".
func (d Definition) ID() string {
	return idString(d["id"])
}

// Normalize returns a copy without the server-assigned fields.
func (d Definition) Normalize() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	for _, f := range volatileFields {
		delete(out, f)
	}
	return out
}

// idString renders a JSON id (string or number) as a string.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}
