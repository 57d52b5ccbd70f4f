package ingest

import (
	"os"

	"github.com/padsense/vitals/internal/errs"
)

// Hints carries the out-of-band patient identifiers an unauthenticated
// producer may supply, one slot per source.
type Hints struct {
	Path   string // path segment, e.g. /v1/patients/{id}/readings
	Query  string // ?patientId=
	Header string // X-Patient-Id
	Body   string // body field patientId
}

// resolver is one entry of the fallback chain.
type resolver struct {
	source string
	lookup func() string
}

// resolveHinted walks the priority-ordered fallback chain and returns the
// first present identifier along with its source name. The order is fixed:
// path, query, header, body, configured default, environment default.
func (s *Service) resolveHinted(hints Hints) (string, string, error) {
	chain := []resolver{
		{"path", func() string { return hints.Path }},
		{"query", func() string { return hints.Query }},
		{"header", func() string { return hints.Header }},
		{"body", func() string { return hints.Body }},
		{"config", func() string { return s.defaultPatient }},
		{"env", func() string { return os.Getenv("VITALS_DEFAULT_PATIENT_ID") }},
	}
	for _, r := range chain {
		if id := r.lookup(); id != "" {
			return id, r.source, nil
		}
	}
	return "", "", errs.Validation("no patient identifiable")
}
