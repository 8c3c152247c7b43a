// Package assets applies and exports Datadog dashboards, monitors and SLOs
// as idempotent upserts keyed by name.
package assets

import (
	"fmt"
)

// Kind describes one asset collection and the quirks of its endpoints.
type Kind struct {
	Name      string // singular, e.g. "dashboard"
	Label     string // e.g. "Dashboards"
	Path      string // collection path relative to the v1 root
	NameField string // "title" for dashboards, "name" otherwise
	Dir       string // template and export directory name
	ListKey   string // key holding the list in a list response, "" for a bare list
	Paging    PageStyle
	Unwrap    bool // single-item responses are wrapped in {"data": ...}
}

var (
	Dashboards = Kind{
		Name:      "dashboard",
		Label:     "Dashboards",
		Path:      "/dashboard",
		NameField: "title",
		Dir:       "dashboards",
		ListKey:   "dashboards",
		Paging:    PageStartCount,
	}
	Monitors = Kind{
		Name:      "monitor",
		Label:     "Monitors",
		Path:      "/monitor",
		NameField: "name",
		Dir:       "monitors",
		Paging:    PagePageSize,
	}
	SLOs = Kind{
		Name:      "SLO",
		Label:     "SLOs",
		Path:      "/slo",
		NameField: "name",
		Dir:       "slos",
		ListKey:   "data",
		Paging:    PageOffsetLimit,
		Unwrap:    true,
	}
)

// AllKinds returns every kind in processing order.
func AllKinds() []Kind {
	return []Kind{Dashboards, Monitors, SLOs}
}

// SelectKinds returns the kinds whose flags are set, in processing order.
// No flag set selects everything.
func SelectKinds(dashboards, monitors, slos bool) []Kind {
	if !dashboards && !monitors && !slos {
		return AllKinds()
	}
	var kinds []Kind
	if dashboards {
		kinds = append(kinds, Dashboards)
	}
	if monitors {
		kinds = append(kinds, Monitors)
	}
	if slos {
		kinds = append(kinds, SLOs)
	}
	return kinds
}

func (k Kind) String() string { return k.Dir }

// ItemPath is the path of one asset.
func (k Kind) ItemPath(id string) string {
	return k.Path + "/" + id
}

// unwrap strips the {"data": {...}} envelope used by single-SLO responses.
func (k Kind) unwrap(obj map[string]any) map[string]any {
	if !k.Unwrap {
		return obj
	}
	if inner, ok := obj["data"].(map[string]any); ok {
		return inner
	}
	return obj
}

// items pulls the list of objects out of a list response.
func (k Kind) items(body any) ([]map[string]any, error) {
	raw := body
	if k.ListKey != "" {
		obj, ok := body.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected %s list response: %T", k.Name, body)
		}
		raw = obj[k.ListKey]
		if raw == nil {
			return nil, nil
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected %s list response: %T", k.Name, raw)
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, nil
}
