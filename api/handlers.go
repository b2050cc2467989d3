package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/service"
	"github.com/hackia/thot/internal/tools"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAssemble handles POST /api/v1/assemble.
func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "assemble requires POST")
		return
	}

	var req AssembleRequest
	if err := s.readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := service.Assemble(req.Filename, req.Source, service.Options{Boot: req.Boot})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, diagnosticMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, AssembleResponse{Image: result.Image, Labels: result.Labels})
}

// handleLint handles POST /api/v1/lint.
func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "lint requires POST")
		return
	}

	var req LintRequest
	if err := s.readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	instructions, err := service.Lower(req.Filename, req.Source, service.Options{})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, diagnosticMessage(err))
		return
	}

	issues := tools.Lint(instructions, tools.DefaultLintOptions())
	resp := LintResponse{Issues: make([]LintIssueJSON, 0, len(issues))}
	for _, issue := range issues {
		resp.Issues = append(resp.Issues, LintIssueJSON{
			Level:   issue.Level.String(),
			Line:    issue.Line,
			Column:  issue.Column,
			Message: issue.Message,
			Code:    issue.Code,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func diagnosticMessage(err error) string {
	var diag *asmerr.Diagnostic
	if errors.As(err, &diag) {
		return diag.Error()
	}
	return err.Error()
}

func (s *Server) readJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, s.maxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
