package assets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/policyinsight/ddops/internal/datadog"
	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/logging"
)

const defaultPageSize = 1000

// API is the subset of the Datadog client the asset code needs.
// *datadog.Client satisfies it.
type API interface {
	Do(ctx context.Context, method, path string, payload any) (any, error)
}

// Outcome is what happened to one asset.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeCreated
	OutcomeUpdated
	OutcomeExported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeExported:
		return "exported"
	default:
		return "failed"
	}
}

// Result reports one asset.
type Result struct {
	Kind    Kind
	Name    string
	Path    string // template or export file
	ID      string
	Outcome Outcome
	Warning string // set when the asset succeeded but something is off
	Err     error
}

// Upserter creates or updates assets so that re-running with the same
// templates converges instead of duplicating.
type Upserter struct {
	api        API
	baseURL    string // prefixes endpoints in permission errors
	pageSize   int
	extractors []IDExtractor
	logger     *slog.Logger
}

// UpserterOption configures an Upserter.
type UpserterOption func(*Upserter)

// WithPageSize sets the page size used when looking assets up by name.
func WithPageSize(n int) UpserterOption {
	return func(u *Upserter) {
		if n > 0 {
			u.pageSize = n
		}
	}
}

// WithExtractors replaces DefaultExtractors.
func WithExtractors(e ...IDExtractor) UpserterOption {
	return func(u *Upserter) { u.extractors = e }
}

// WithUpserterLogger sets the logger.
func WithUpserterLogger(l *slog.Logger) UpserterOption {
	return func(u *Upserter) { u.logger = l }
}

// WithBaseURL sets the API root named in permission errors. It defaults to
// the api's own BaseURL when it has one.
func WithBaseURL(url string) UpserterOption {
	return func(u *Upserter) { u.baseURL = strings.TrimSuffix(url, "/") }
}

func NewUpserter(api API, opts ...UpserterOption) *Upserter {
	u := &Upserter{
		api:        api,
		pageSize:   defaultPageSize,
		extractors: DefaultExtractors,
		logger:     logging.Logger,
	}
	if b, ok := api.(interface{ BaseURL() string }); ok {
		u.baseURL = b.BaseURL()
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// permission turns a 403 on path into a PermissionError naming the scopes
// apply needs.
func (u *Upserter) permission(err error, path string) error {
	return datadog.AsPermissionError(err, u.baseURL+path, datadog.WriteScopes)
}

// Upsert makes the remote asset match def.
//
// An embedded id wins; otherwise the first live asset with the same name is
// updated. An update answered with 404 falls back to a create. The payload
// sent never carries an id.
func (u *Upserter) Upsert(ctx context.Context, kind Kind, def Definition) Result {
	res := Result{Kind: kind, Name: def.Name(kind)}

	id := def.ID()
	if id == "" && res.Name != "" {
		found, err := u.FindByName(ctx, kind, res.Name)
		if err != nil {
			res.Err = fmt.Errorf("looking up %s %q: %w", kind.Name, res.Name, u.permission(err, kind.Path))
			return res
		}
		id = found
	}

	payload := def.Normalize()
	if id != "" {
		_, err := u.api.Do(ctx, http.MethodPut, kind.ItemPath(id), payload)
		switch {
		case err == nil:
			res.ID = id
			res.Outcome = OutcomeUpdated
			return res
		case ddhttp.IsStatus(err, http.StatusNotFound):
			u.logger.Info("asset not found, creating", "kind", kind.Name, "id", id, "name", res.Name)
		default:
			res.ID = id
			res.Err = fmt.Errorf("updating %s %s: %w", kind.Name, id, u.permission(err, kind.ItemPath(id)))
			return res
		}
	}

	body, err := u.api.Do(ctx, http.MethodPost, kind.Path, payload)
	if err != nil {
		res.Err = fmt.Errorf("creating %s %q: %w", kind.Name, res.Name, u.permission(err, kind.Path))
		return res
	}
	res.Outcome = OutcomeCreated

	if newID, ok := ExtractID(body, u.extractors); ok {
		res.ID = newID
		return res
	}
	if res.Name != "" {
		if found, err := u.FindByName(ctx, kind, res.Name); err == nil && found != "" {
			res.ID = found
			return res
		}
	}
	res.Warning = "created, but the response carried no id and no asset with that name was found"
	u.logger.Warn("could not determine id of created asset", "kind", kind.Name, "name", res.Name)
	return res
}

// FindByName returns the id of the first live asset whose name equals name
// exactly, or "".
func (u *Upserter) FindByName(ctx context.Context, kind Kind, name string) (string, error) {
	items, err := List(ctx, u.api, kind, u.pageSize)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if n, _ := item[kind.NameField].(string); n == name {
			return idString(item["id"]), nil
		}
	}
	return "", nil
}
