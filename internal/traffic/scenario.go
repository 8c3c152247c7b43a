// Package traffic generates load against the document service to trigger
// the latency, backlog and LLM cost monitors.
package traffic

import (
	"fmt"
	"strings"
	"time"
)

// Scenario names accepted by --scenario.
const (
	Latency = "latency"
	Backlog = "backlog"
	LLMCost = "llm-cost"
)

// ScenarioConfig describes one load shape.
type ScenarioConfig struct {
	Name           string
	Description    string
	Workers        int           // concurrent loops
	Pause          time.Duration // between requests of one loop
	RequestTimeout time.Duration
	ProgressEvery  int
	ProgressFormat string // printed with the running count
	AcceptedOnly   bool   // count only 202 uploads, not every response
	Settle         time.Duration
	Question       string
}

// Scenarios returns the built-in scenarios, keyed by name.
func Scenarios() map[string]ScenarioConfig {
	return map[string]ScenarioConfig{
		Latency: {
			Name:           Latency,
			Description:    "concurrent uploads to raise request latency",
			Workers:        10,
			Pause:          100 * time.Millisecond,
			RequestTimeout: 5 * time.Second,
			ProgressEvery:  10,
			ProgressFormat: "   Sent %d requests...",
		},
		Backlog: {
			Name:           Backlog,
			Description:    "a steady stream of uploads to build a job backlog",
			Workers:        1,
			Pause:          500 * time.Millisecond,
			RequestTimeout: 10 * time.Second,
			ProgressEvery:  5,
			ProgressFormat: "   Uploaded %d documents...",
			AcceptedOnly:   true,
		},
		LLMCost: {
			Name:           LLMCost,
			Description:    "repeated Q&A on one document to drive LLM calls",
			Workers:        1,
			Pause:          time.Second,
			RequestTimeout: 10 * time.Second,
			ProgressEvery:  5,
			ProgressFormat: "   Sent %d Q&A requests...",
			Settle:         2 * time.Second,
			Question:       "What are the key terms in this document?",
		},
	}
}

// ParseScenario looks a scenario up by name.
func ParseScenario(name string) (ScenarioConfig, error) {
	cfg, ok := Scenarios()[strings.ToLower(name)]
	if !ok {
		return ScenarioConfig{}, fmt.Errorf("unknown scenario %q (want %s, %s or %s)", name, Latency, Backlog, LLMCost)
	}
	return cfg, nil
}
