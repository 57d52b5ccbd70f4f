package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/padsense/vitals/internal/auth"
	"github.com/padsense/vitals/internal/broadcast"
	"github.com/padsense/vitals/internal/errs"
	"github.com/padsense/vitals/internal/ingest"
	"github.com/padsense/vitals/internal/reading"
	"github.com/padsense/vitals/internal/runtime"
	"github.com/padsense/vitals/pkg/id"
)

const (
	patientHeader   = "X-Patient-Id"
	requestIDHeader = "X-Request-Id"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	reqIDs *id.Generator
}

func New(rt *runtime.Runtime) *Server {
	mux := http.NewServeMux()
	s := &Server{rt: rt, reqIDs: id.NewGenerator()}
	s.srv = &http.Server{Handler: cors(s.requestID(mux))}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/readings", s.handleIngest)
	mux.HandleFunc("/v1/readings/latest", s.handleLatest)
	mux.HandleFunc("/v1/readings/subscribe", s.handleSubscribeSSE)
	mux.HandleFunc("/v1/patients", s.handlePatientCreate)
	mux.HandleFunc("/v1/patients/", s.handlePatientSubtree)
	mux.Handle("/metrics", rt.Metrics().Handler())
	return s
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+patientHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID mints one correlation id per request, echoes it in the response
// header, and attaches it to the context for downstream log fields.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := s.reqIDs.Next()
		w.Header().Set(requestIDHeader, rid.String())
		next.ServeHTTP(w, r.WithContext(id.NewContext(r.Context(), rid)))
	})
}

// principal resolves the request's bearer token, if any. A missing or unknown
// token yields nil; handlers that require authentication reject nil.
func (s *Server) principal(r *http.Request) *auth.Principal {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return nil
	}
	p, ok := s.rt.Authenticator().Authenticate(r.Context(), strings.TrimPrefix(h, prefix))
	if !ok {
		return nil
	}
	return &p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindUnauthorized:
		status = http.StatusUnauthorized
	case errs.KindNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ingestReq is the ingestion payload. pressure_raw is the legacy field name
// still emitted by older pad firmware; it is honored when pressure is absent.
type ingestReq struct {
	Pressure    *int     `json:"pressure"`
	PressureRaw *int     `json:"pressure_raw"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	PatientID   string   `json:"patientId"`
}

func (req ingestReq) raw() ingest.RawReading {
	p := req.Pressure
	if p == nil {
		p = req.PressureRaw
	}
	return ingest.RawReading{Pressure: p, Temperature: req.Temperature, Humidity: req.Humidity}
}

// ingestResp acknowledges an accepted reading with its assigned identifier.
type ingestResp struct {
	ID      uint64          `json:"id"`
	Status  string          `json:"status"`
	Reading reading.Reading `json:"reading"`
}

func (s *Server) ingestWith(w http.ResponseWriter, r *http.Request, pathPatient string) {
	var req ingestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid JSON body: %v", err))
		return
	}
	hints := ingest.Hints{
		Path:   pathPatient,
		Query:  r.URL.Query().Get("patientId"),
		Header: r.Header.Get(patientHeader),
		Body:   req.PatientID,
	}
	rd, err := s.rt.Ingest().IngestHinted(r.Context(), s.principal(r), req.raw(), hints)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResp{ID: rd.ID, Status: "accepted", Reading: rd})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.ingestWith(w, r, "")
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, errs.Validation("limit must be an integer"))
			return
		}
		limit = n
	}
	readings, err := s.rt.Ingest().Latest(r.Context(), s.principal(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if readings == nil {
		readings = []reading.Reading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

type patientCreateReq struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (s *Server) handlePatientCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req patientCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid JSON body: %v", err))
		return
	}
	meta, err := s.rt.Registry().Ensure(req.ID, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// handlePatientSubtree routes /v1/patients/{id}/readings.
func (s *Server) handlePatientSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/patients/")
	parts := strings.Split(rest, "/")
	if len(parts) == 2 && parts[1] == "readings" && parts[0] != "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.ingestWith(w, r, parts[0])
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleSubscribeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	patient := r.URL.Query().Get("patientId")
	if patient == "" {
		if p := s.principal(r); p != nil {
			if bound, ok := s.rt.Authenticator().(auth.Directory); ok {
				patient, _ = bound.PatientFor(r.Context(), *p)
			}
		}
	}
	if patient == "" {
		writeError(w, errs.Validation("patientId is required"))
		return
	}
	exists, err := s.rt.Registry().Exists(patient)
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		writeError(w, errs.NotFound("patient %q not found", patient))
		return
	}

	filter, err := broadcast.NewFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, errs.Validation("invalid filter: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	sub := s.rt.Hub().Subscribe(patient, filter)
	defer sub.Close()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case rd, ok := <-sub.C():
			if !ok {
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if err := enc.Encode(rd); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
