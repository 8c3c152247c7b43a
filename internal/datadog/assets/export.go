package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/policyinsight/ddops/internal/datadog"
	"github.com/policyinsight/ddops/internal/datadog/templating"
	"github.com/policyinsight/ddops/internal/logging"
	"github.com/policyinsight/ddops/internal/storage"
)

// ExportOptions controls where and what Exporter writes.
type ExportOptions struct {
	DataDir      string   // substituted for {DATA_DIR}
	PathTemplate string   // e.g. "{DATA_DIR}/{kind}/{name}.json"
	Tags         []string // only export assets carrying all of these
	PageSize     int
	BaseURL      string // used in permission errors
}

// Exporter writes live assets to JSON files that Applier can re-apply.
type Exporter struct {
	api    API
	opts   ExportOptions
	out    io.Writer
	logger *slog.Logger
}

// NewExporter writes per-asset progress lines to out (nil discards them).
func NewExporter(api API, opts ExportOptions, out io.Writer) *Exporter {
	if out == nil {
		out = io.Discard
	}
	if opts.PathTemplate == "" {
		opts.PathTemplate = "{DATA_DIR}/{kind}/{name}.json"
	}
	return &Exporter{api: api, opts: opts, out: out, logger: logging.Logger}
}

// Export processes kinds in order. A kind whose listing fails is recorded
// as failed and the next kind is still exported.
func (e *Exporter) Export(ctx context.Context, kinds []Kind) *Summary {
	summary := &Summary{}
	for _, kind := range kinds {
		ks := summary.Kind(kind)
		fmt.Fprintf(e.out, "Fetching %s...\n", strings.ToLower(kind.Label))

		items, err := List(ctx, e.api, kind, e.opts.PageSize)
		if err != nil {
			ks.Err = datadog.AsPermissionError(err, e.opts.BaseURL+kind.Path, datadog.ReadScopes)
			fmt.Fprintf(e.out, "  ❌ %v\n\n", ks.Err)
			continue
		}
		fmt.Fprintf(e.out, "Found %d %s(s)\n", len(items), kind.Name)
		ks.Found = len(items) > 0

		written := map[string]string{}
		for _, item := range items {
			if ctx.Err() != nil {
				return summary
			}
			res, skip := e.exportOne(ctx, kind, item, written)
			if skip {
				continue
			}
			summary.Add(res)
		}
		fmt.Fprintln(e.out)
	}
	return summary
}

// exportOne fetches and writes one asset. skip is true when the asset does
// not match the tag filter.
func (e *Exporter) exportOne(ctx context.Context, kind Kind, item map[string]any, written map[string]string) (Result, bool) {
	name, _ := item[kind.NameField].(string)
	if name == "" {
		name = "unknown"
	}
	res := Result{Kind: kind, Name: name}

	id := idString(item["id"])
	if id == "" {
		res.Err = fmt.Errorf("%s %q missing 'id' field; this is not a real export", kind.Name, name)
		fmt.Fprintf(e.out, "  ❌ %v\n", res.Err)
		return res, false
	}
	res.ID = id

	body, err := e.api.Do(ctx, http.MethodGet, kind.ItemPath(id), nil)
	if err != nil {
		res.Err = datadog.AsPermissionError(err, e.opts.BaseURL+kind.ItemPath(id), datadog.ReadScopes)
		fmt.Fprintf(e.out, "  ❌ %s: %v\n", name, res.Err)
		return res, false
	}
	obj, ok := body.(map[string]any)
	if !ok {
		res.Err = fmt.Errorf("unexpected %s response: %T", kind.Name, body)
		return res, false
	}
	def := kind.unwrap(obj)
	if idString(def["id"]) == "" {
		res.Err = fmt.Errorf("%s export for %q missing 'id' field; invalid export", kind.Name, name)
		fmt.Fprintf(e.out, "  ❌ %v\n", res.Err)
		return res, false
	}

	if !templating.HasAllTags(templating.Tags(def["tags"]), e.opts.Tags) {
		return res, true
	}

	path := e.path(kind, id, name, def)
	if prev, clash := written[path]; clash && prev != id {
		deduped := strings.TrimSuffix(path, filepath.Ext(path)) + "-" + storage.SanitizeFilename(id) + filepath.Ext(path)
		e.logger.Warn("export path already used, adding id", "path", path, "id", id, "other", prev)
		path = deduped
	}
	written[path] = id

	if err := storage.WriteJSONFile(path, def); err != nil {
		res.Err = err
		fmt.Fprintf(e.out, "  ❌ %s: %v\n", name, err)
		return res, false
	}
	res.Path = path
	res.Outcome = OutcomeExported
	fmt.Fprintf(e.out, "  Exported: %s (ID: %s)\n", path, id)
	return res, false
}

func (e *Exporter) path(kind Kind, id, name string, def map[string]any) string {
	safe := storage.SanitizeFilename(name)
	if safe == "" {
		safe = storage.SanitizeFilename(id)
	}
	fallback := filepath.Join(e.opts.DataDir, kind.Dir, safe+".json")
	return templating.ExpandPath(e.opts.PathTemplate, templating.PathData{
		DataDir: e.opts.DataDir,
		Kind:    kind.Dir,
		ID:      id,
		Name:    safe,
		Tags:    templating.ExtractTagMap(def["tags"], true),
	}, fallback)
}
