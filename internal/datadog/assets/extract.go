package assets

// IDExtractor pulls a newly created id out of a create response.
type IDExtractor func(body any) (string, bool)

// DefaultExtractors covers every create-response shape seen from Datadog, in
// the order they are tried.
var DefaultExtractors = []IDExtractor{
	TopLevelID,
	DataObjectID,
	ListFirstID,
	DataListFirstID,
}

// TopLevelID handles {"id": ...}.
func TopLevelID(body any) (string, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmpty(idString(obj["id"]))
}

// DataObjectID handles {"data": {"id": ...}}.
func DataObjectID(body any) (string, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	return TopLevelID(obj["data"])
}

// ListFirstID handles [{"id": ...}].
func ListFirstID(body any) (string, bool) {
	list, ok := body.([]any)
	if !ok || len(list) == 0 {
		return "", false
	}
	return TopLevelID(list[0])
}

// DataListFirstID handles {"data": [{"id": ...}]}, the SLO create shape.
func DataListFirstID(body any) (string, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	return ListFirstID(obj["data"])
}

// ExtractID returns the first id any extractor finds.
func ExtractID(body any, extractors []IDExtractor) (string, bool) {
	for _, extract := range extractors {
		if id, ok := extract(body); ok {
			return id, true
		}
	}
	return "", false
}

func nonEmpty(s string) (string, bool) {
	return s, s != ""
}
