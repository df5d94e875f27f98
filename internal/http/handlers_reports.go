package http

import (
	"net/http"

	"github.com/omrishi123/tractortrack/internal/export"
	"github.com/omrishi123/tractortrack/internal/export/xlsx"
	"github.com/omrishi123/tractortrack/internal/log"
	"github.com/omrishi123/tractortrack/internal/report"
)

func (s *Server) invoice(r *http.Request) (report.Invoice, error) {
	req, err := ParseReportParams(r.URL.Query(), pathID(r, "customerID"))
	if err != nil {
		return report.Invoice{}, err
	}
	return sessionFrom(r).Report(req)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoice(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(inv).Write(w)
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoice(r)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	file, err := xlsx.Render(inv)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewJSONResponse().
		Header("Content-Disposition", `attachment; filename="`+export.Filename(inv, "xlsx")+`"`).
		Raw(xlsx.ContentType, file).
		Write(w)
}

func (s *Server) handleReportSheets(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoice(r)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	url, err := s.deps.Sheets.Export(r.Context(), inv)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Invoice exported to sheet",
		log.FieldOperation, log.OpExport, log.FieldCustomerID, pathID(r, "customerID"))
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"url": url}).Write(w)
}
