package orchestrator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/metrics"
)

const maxBodyBytes = 4 << 20

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", o.handleIndex)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "API is running"})
	})
	mux.HandleFunc("GET /ready", o.handleReady)
	mux.HandleFunc("POST /process", o.handleProcess)
	mux.HandleFunc("POST /cut_pdf", o.handleCutPDF)
	mux.HandleFunc("GET /jobs/{id}", o.handleJob)
	mux.Handle("GET /metrics", metrics.Handler())
}

func (o *Orchestrator) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "PDF Document Splitter API",
		"version": "1.0",
		"endpoints": map[string]string{
			"/process":   "POST - Split the documents of a folder by classifier boundaries",
			"/cut_pdf":   "POST - Cut PDFs by explicit page ranges",
			"/jobs/{id}": "GET - Job status and result",
			"/health":    "GET - Health check",
			"/ready":     "GET - Dependency readiness",
			"/metrics":   "GET - Prometheus metrics",
		},
	})
}

type processReq struct {
	FolderPath string `json:"folder_path"`
}

func (o *Orchestrator) handleProcess(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req processReq
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("folder_path is required in request body"))
		return
	}
	job, err := o.ProcessFolder(r.Context(), req.FolderPath)
	o.respond(w, job, err)
}

func (o *Orchestrator) handleCutPDF(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(b) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("Request body is required"))
		return
	}
	req, err := DecodeCutRequest(b)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	groups, err := req.ToGroups()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	job, err := o.CutPDF(r.Context(), groups)
	o.respond(w, job, err)
}

func (o *Orchestrator) respond(w http.ResponseWriter, job Job, err error) {
	switch {
	case err == nil:
		rep := NewReport(job)
		if o.deps.ReportDir != "" {
			if _, werr := WriteReport(o.deps.ReportDir, ReportTimestamp(time.Now()), rep); werr != nil {
				log.Warn().Err(werr).Str("job_id", job.ID).Msg("report file not written")
			}
		}
		writeJSON(w, http.StatusOK, rep)
	case IsBadRequest(err):
		writeError(w, http.StatusBadRequest, err)
	default:
		log.Error().Err(err).Str("job_id", job.ID).Msg("job failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (o *Orchestrator) handleJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	body := map[string]any{
		"job_id":     id,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
		"metadata":   st.Metadata,
	}
	if len(st.Result) > 0 {
		body["result"] = st.Result
	}
	writeJSON(w, http.StatusOK, body)
}

func (o *Orchestrator) handleReady(w http.ResponseWriter, r *http.Request) {
	if o.deps.Ready == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ready": true})
		return
	}
	sum := o.deps.Ready.Summary(r.Context())
	code := http.StatusOK
	if !sum.Ready() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"ready": sum.Ready(), "checks": sum})
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, NewErrorReport(code, err))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
