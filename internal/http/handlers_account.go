package http

import (
	"net/http"

	"github.com/omrishi123/tractortrack/internal/advisor"
	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/log"
)

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(sessionFrom(r).Data()).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(sessionFrom(r).Summary()).Write(w)
}

func (s *Server) handleDues(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(sessionFrom(r).Dues()).Write(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(sessionFrom(r).Status()).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if patch.UserName != nil {
		v := sanitizeInput(*patch.UserName)
		patch.UserName = &v
	}
	if patch.TractorName != nil {
		v := sanitizeInput(*patch.TractorName)
		patch.TractorName = &v
	}
	settings, err := sessionFrom(r).UpdateSettings(patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(settings).Write(w)
}

// handleAdvice asks the advisor which customers are due for a visit.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	in := advisor.BuildInput(sessionFrom(r).Data())
	out, err := s.deps.Advisor.Suggest(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpAdvise, err)
		return
	}
	NewJSONResponse().Body(out).Write(w)
}
