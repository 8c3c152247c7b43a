package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/policyinsight/ddops/internal/storage"
)

// Applier upserts every template under a templates directory laid out as
// <dir>/dashboards, <dir>/monitors and <dir>/slos.
type Applier struct {
	upserter     *Upserter
	templatesDir string
	out          io.Writer
}

// NewApplier writes per-asset progress lines to out (nil discards them).
func NewApplier(u *Upserter, templatesDir string, out io.Writer) *Applier {
	if out == nil {
		out = io.Discard
	}
	return &Applier{upserter: u, templatesDir: templatesDir, out: out}
}

// Apply processes kinds in order, templates in lexical file order. Only a
// missing templates directory is returned as an error; everything else is
// recorded in the summary.
func (a *Applier) Apply(ctx context.Context, kinds []Kind) (*Summary, error) {
	info, err := os.Stat(a.templatesDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("templates directory does not exist: %s", a.templatesDir)
	}

	summary := &Summary{}
	for _, kind := range kinds {
		ks := summary.Kind(kind)
		paths, err := storage.ListJSONFiles(filepath.Join(a.templatesDir, kind.Dir))
		if err != nil && !storage.IsNotExist(err) {
			ks.Err = err
			continue
		}
		if len(paths) == 0 {
			continue
		}

		fmt.Fprintf(a.out, "%s:\n", kind.Label)
		for _, path := range paths {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Add(a.applyFile(ctx, kind, path))
		}
		fmt.Fprintln(a.out)
	}
	return summary, nil
}

func (a *Applier) applyFile(ctx context.Context, kind Kind, path string) Result {
	_, obj, err := storage.ReadJSONFile(path)
	if err != nil {
		fmt.Fprintf(a.out, "  ❌ %s: %v\n", filepath.Base(path), err)
		return Result{Kind: kind, Name: filepath.Base(path), Path: path, Err: err}
	}

	def := Definition(kind.unwrap(obj))
	fmt.Fprintf(a.out, "  Applying %s: %s\n", kind.Name, def.Name(kind))

	res := a.upserter.Upsert(ctx, kind, def)
	res.Path = path
	switch {
	case res.Err != nil:
		fmt.Fprintf(a.out, "    ❌ Error: %v\n", res.Err)
	case res.Outcome == OutcomeUpdated:
		fmt.Fprintf(a.out, "    ✅ Updated %s: %s (ID: %s)\n", kind.Name, res.Name, res.ID)
	default:
		fmt.Fprintf(a.out, "    ✅ Created %s: %s (ID: %s)\n", kind.Name, res.Name, res.ID)
		if res.Warning != "" {
			fmt.Fprintf(a.out, "    ⚠️  %s\n", res.Warning)
		}
	}
	return res
}
