// Package eval measures extraction health: it runs every fixture PDF through
// the document service twice and scores the resulting reports.
package eval

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ReportFields are the report sections every extraction must produce. They
// may be null but must be present.
var ReportFields = []string{
	"documentOverview",
	"summaryBullets",
	"obligations",
	"restrictions",
	"terminationTriggers",
	"riskTaxonomy",
}

// ValidateSchema checks the minimal report-json contract and returns the
// first violation.
func ValidateSchema(data map[string]any) error {
	jobID, _ := data["jobId"].(string)
	if jobID == "" {
		return errors.New("jobId missing")
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return fmt.Errorf("jobId %q is not a UUID", jobID)
	}

	report, ok := data["report"].(map[string]any)
	if !ok {
		return errors.New("report is not an object")
	}
	for _, field := range ReportFields {
		if _, ok := report[field]; !ok {
			return fmt.Errorf("report.%s missing", field)
		}
	}

	meta, ok := data["chunksMeta"].(map[string]any)
	if !ok {
		return errors.New("chunksMeta is not an object")
	}
	if n, ok := asInt(meta["chunkCount"]); !ok || n < 0 {
		return fmt.Errorf("chunksMeta.chunkCount %v is not an integer >= 0", meta["chunkCount"])
	}

	if generatedAt, present := data["generatedAt"]; present && generatedAt != nil {
		if _, ok := generatedAt.(string); !ok {
			return errors.New("generatedAt is not a string")
		}
	}
	return nil
}

// asInt accepts JSON integers only; 3.0 is a float.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
