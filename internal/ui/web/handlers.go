package web

import (
	"net/http"
	"strconv"
	"strings"

	"warnboard/internal/core/errors"
	"warnboard/internal/core/ports"
	"warnboard/internal/data/importer"
	"warnboard/internal/engine/table"
)

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.svc.Jobs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.Job(r.Context(), r.PathValue("job"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) importJobs(w http.ResponseWriter, r *http.Request) {
	format := importer.FormatJSON
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "yaml") {
		format = importer.FormatYAML
	}
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	jobs, err := importer.Decode(body, format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error:     "request body too large",
				Code:      errors.CodeInvalidArgument,
				RequestID: requestIDFrom(r.Context()),
			})
			return
		}
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Import(r.Context(), importer.Merge(jobs))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) buildRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.BuildRows(r.Context(), r.PathValue("job"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) usedTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.svc.UsedTools(r.Context(), r.PathValue("job"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) issueRows(w http.ResponseWriter, r *http.Request) {
	build, err := buildNumber(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	rows, err := s.svc.IssueRows(r.Context(), ports.IssueQuery{
		Job:      r.PathValue("job"),
		Build:    build,
		ToolID:   r.PathValue("tool"),
		Category: q.Get("category"),
		GroupBy:  q.Get("groupBy"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) messages(w http.ResponseWriter, r *http.Request) {
	build, err := buildNumber(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Messages(r.Context(), r.PathValue("job"), build, r.PathValue("tool"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) buildSummary(w http.ResponseWriter, r *http.Request) {
	build, err := buildNumber(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.BuildSummary(r.Context(), r.PathValue("job"), build)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) toolTrend(w http.ResponseWriter, r *http.Request) {
	req, err := trendRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.ToolTrend(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) newVersusFixed(w http.ResponseWriter, r *http.Request) {
	req, err := trendRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.NewVersusFixed(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type tableResponse struct {
	table.TableModel
	ColumnsDefinition string `json:"columnsDefinition"`
}

func (s *Server) tableModel(w http.ResponseWriter, r *http.Request) {
	kind, err := table.ParseRowKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := table.Model(kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{TableModel: m, ColumnsDefinition: m.ColumnsDefinition()})
}

// tableRows serves the rows of a table kind. Build rows need ?job=; issue rows also take
// build, tool, category and groupBy.
func (s *Server) tableRows(w http.ResponseWriter, r *http.Request) {
	kind, err := table.ParseRowKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	iq := ports.IssueQuery{
		Job:      q.Get("job"),
		ToolID:   q.Get("tool"),
		Category: q.Get("category"),
		GroupBy:  q.Get("groupBy"),
	}
	if iq.Job == "" {
		writeError(w, r, errors.New(errors.CodeInvalidArgument, "job query parameter is required"))
		return
	}
	if kind == table.KindIssues {
		raw := q.Get("build")
		if iq.Build, err = strconv.Atoi(raw); err != nil {
			writeError(w, r, errors.Newf(errors.CodeInvalidArgument, "build must be a number but was: %q", raw))
			return
		}
	}
	rows, err := s.svc.TableRows(r.Context(), kind, iq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.openapi)
}

func buildNumber(r *http.Request) (int, error) {
	raw := r.PathValue("build")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Newf(errors.CodeInvalidArgument, "build must be a number but was: %q", raw)
	}
	return n, nil
}

func trendRequest(r *http.Request) (ports.TrendRequest, error) {
	q := r.URL.Query()
	req := ports.TrendRequest{
		Job:    r.PathValue("job"),
		Tool:   q.Get("tool"),
		Metric: q.Get("metric"),
	}
	var err error
	if req.Window.MaxBuilds, err = optionalInt(q.Get("maxBuilds"), "maxBuilds"); err != nil {
		return req, err
	}
	if req.Window.MaxAgeDays, err = optionalInt(q.Get("maxAgeDays"), "maxAgeDays"); err != nil {
		return req, err
	}
	if raw := q.Get("useBuildLabel"); raw != "" {
		b, perr := strconv.ParseBool(raw)
		if perr != nil {
			return req, errors.Newf(errors.CodeInvalidArgument, "useBuildLabel must be a boolean but was: %q", raw)
		}
		req.Window.UseBuildLabel = &b
	}
	return req, nil
}

func optionalInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.Newf(errors.CodeInvalidArgument, "%s must be a number but was: %q", name, raw)
	}
	return &n, nil
}
