// Package fake is an in-memory document-processing service implementing the
// upload, status, report-json and qa endpoints.
package fake

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReportFunc builds the report of the seq-th upload (1-based) of filename.
type ReportFunc func(filename string, seq int) map[string]any

type job struct {
	filename string
	seq      int
	token    string
	polls    int
	fail     bool
}

// Service holds fake state. Create it with New.
type Service struct {
	mu sync.Mutex

	jobs      map[string]*job
	seqs      map[string]int
	failing   map[string]bool
	readyAt   int
	rejectAs  int
	report    ReportFunc
	uploads   int
	questions int
}

func New() *Service {
	return &Service{
		jobs:    map[string]*job{},
		seqs:    map[string]int{},
		failing: map[string]bool{},
		report:  DefaultReport,
	}
}

// DefaultReport returns a complete report that is identical across runs.
func DefaultReport(filename string, seq int) map[string]any {
	return map[string]any{
		"report": map[string]any{
			"documentOverview":    "Overview of " + filename,
			"summaryBullets":      []any{"first", "second"},
			"obligations":         []any{"pay on time"},
			"restrictions":        []any{},
			"terminationTriggers": nil,
			"riskTaxonomy":        map[string]any{"legal": "low"},
		},
		"chunksMeta":  map[string]any{"chunkCount": 3},
		"generatedAt": "2026-01-01T00:00:00Z",
	}
}

func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/upload", s.upload)
		r.Get("/{id}/status", s.withJob(s.status))
		r.Get("/{id}/report-json", s.withJob(s.reportJSON))
		r.Post("/{id}/qa", s.qa)
	})
	return r
}

// SetReadyAfter makes each job report PROCESSING for n status polls.
func (s *Service) SetReadyAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyAt = n
}

// FailJobs makes jobs for filename end in FAILED.
func (s *Service) FailJobs(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[filename] = true
}

// RejectUploads makes every upload answer status.
func (s *Service) RejectUploads(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAs = status
}

// SetReport replaces DefaultReport.
func (s *Service) SetReport(fn ReportFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = fn
}

// Uploads returns the number of accepted uploads.
func (s *Service) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

// Questions returns the number of Q&A requests received.
func (s *Service) Questions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

func (s *Service) upload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.rejectAs
	s.mu.Unlock()
	if reject != 0 {
		writeJSON(w, reject, map[string]any{"error": http.StatusText(reject)})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing file"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	if header.Header.Get("Content-Type") != "application/pdf" || len(data) < 5 || string(data[:5]) != "%PDF-" {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "not a PDF"})
		return
	}

	s.mu.Lock()
	s.uploads++
	s.seqs[header.Filename]++
	j := &job{
		filename: header.Filename,
		seq:      s.seqs[header.Filename],
		token:    uuid.NewString(),
		fail:     s.failing[header.Filename],
	}
	id := uuid.NewString()
	s.jobs[id] = j
	s.mu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]any{"jobId": id, "token": j.token, "status": "PENDING"})
}

func (s *Service) withJob(next func(http.ResponseWriter, string, *job)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s.mu.Lock()
		j, ok := s.jobs[id]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown job"})
			return
		}
		if r.Header.Get("X-Job-Token") != j.token {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "bad token"})
			return
		}
		next(w, id, j)
	}
}

func (s *Service) status(w http.ResponseWriter, id string, j *job) {
	s.mu.Lock()
	j.polls++
	done := j.polls > s.readyAt
	s.mu.Unlock()

	switch {
	case !done:
		writeJSON(w, http.StatusOK, map[string]any{"jobId": id, "status": "PROCESSING"})
	case j.fail:
		writeJSON(w, http.StatusOK, map[string]any{"jobId": id, "status": "FAILED", "errorMessage": "extraction failed"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"jobId": id, "status": "SUCCESS"})
	}
}

func (s *Service) reportJSON(w http.ResponseWriter, id string, j *job) {
	s.mu.Lock()
	fn := s.report
	s.mu.Unlock()
	body := fn(j.filename, j.seq)
	if _, ok := body["jobId"]; !ok {
		body["jobId"] = id
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Service) qa(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "question required"})
		return
	}
	s.mu.Lock()
	s.questions++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"answer": "The key terms are payment and termination."})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
