package assets

// KindSummary aggregates the results of one kind.
type KindSummary struct {
	Kind    Kind
	Found   bool  // false when there was nothing to process
	Err     error // kind-level failure, e.g. a 403 on the list endpoint
	Results []Result
}

// Count returns how many results had outcome o.
func (k *KindSummary) Count(o Outcome) int {
	n := 0
	for _, r := range k.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Summary aggregates a whole apply or export run, kinds in processing order.
type Summary struct {
	Kinds []*KindSummary
}

// Kind returns the summary for kind, adding it if needed.
func (s *Summary) Kind(kind Kind) *KindSummary {
	for _, k := range s.Kinds {
		if k.Kind.Dir == kind.Dir {
			return k
		}
	}
	k := &KindSummary{Kind: kind}
	s.Kinds = append(s.Kinds, k)
	return k
}

// Add records r under its kind.
func (s *Summary) Add(r Result) {
	k := s.Kind(r.Kind)
	k.Found = true
	k.Results = append(k.Results, r)
}

// Count returns how many results across all kinds had outcome o.
func (s *Summary) Count(o Outcome) int {
	n := 0
	for _, k := range s.Kinds {
		n += k.Count(o)
	}
	return n
}

// Failed counts failed assets plus failed kinds. Non-zero means the run
// should exit non-zero.
func (s *Summary) Failed() int {
	n := s.Count(OutcomeFailed)
	for _, k := range s.Kinds {
		if k.Err != nil {
			n++
		}
	}
	return n
}

// Warnings returns every result that carries a warning.
func (s *Summary) Warnings() []Result {
	var out []Result
	for _, k := range s.Kinds {
		for _, r := range k.Results {
			if r.Warning != "" {
				out = append(out, r)
			}
		}
	}
	return out
}
