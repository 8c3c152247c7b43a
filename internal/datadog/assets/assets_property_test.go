package assets

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

var idGen = rapid.StringMatching(`[a-z0-9]{3}-[a-z0-9]{3}-[a-z0-9]{3}|[1-9][0-9]{0,15}`)

// For any id and any of the known create-response shapes, the default
// extractors recover the id.
func TestPropertyExtractIDFromKnownShapes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := idGen.Draw(rt, "id")
		var idValue any = id
		if rapid.Bool().Draw(rt, "numeric") {
			idValue = json.Number(id)
		}
		item := map[string]any{"id": idValue, "name": "x"}

		shapes := []any{
			item,
			map[string]any{"data": item},
			[]any{item},
			map[string]any{"data": []any{item}},
		}
		body := rapid.SampledFrom(shapes).Draw(rt, "shape")

		got, ok := ExtractID(body, DefaultExtractors)
		if !ok || got != id {
			rt.Fatalf("ExtractID(%v) = %q, %v; want %q", body, got, ok, id)
		}
	})
}

// recordingAPI answers list calls with a fixed collection and records the
// write calls it receives.
type recordingAPI struct {
	items []any
	calls []string
}

func (r *recordingAPI) Do(ctx context.Context, method, path string, payload any) (any, error) {
	r.calls = append(r.calls, method)
	switch method {
	case "GET":
		return r.items, nil
	case "POST":
		if _, ok := payload.(map[string]any)["id"]; ok {
			return nil, errors.New("create payload carries an id")
		}
		return map[string]any{"id": "new"}, nil
	default:
		return map[string]any{}, nil
	}
}

// For any live collection that does not contain the name, an asset with no
// id is created and never updated.
func TestPropertyNoIDNoMatchAlwaysCreates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		names := rapid.SliceOfDistinct(rapid.StringMatching(`[A-Za-z ]{1,12}`), func(s string) string { return s }).Draw(rt, "live")
		target := rapid.StringMatching(`Cost Overview [0-9]{1,3}`).Draw(rt, "target")

		var items []any
		for i, n := range names {
			items = append(items, map[string]any{"id": json.Number(strconv.Itoa(i + 1)), "name": n})
		}
		api := &recordingAPI{items: items}

		res := NewUpserter(api).Upsert(context.Background(), Monitors, Definition{"name": target, "query": "q"})
		if res.Outcome != OutcomeCreated {
			rt.Fatalf("outcome = %v, want created", res.Outcome)
		}
		for _, c := range api.calls {
			if c == "PUT" {
				rt.Fatalf("unexpected update, calls = %v", api.calls)
			}
		}
	})
}
