package http

import (
	"net/http"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/ledger"
	"github.com/omrishi123/tractortrack/internal/log"
)

// workLogRequest is the body of a new work entry. The customer comes from
// the path.
type workLogRequest struct {
	Date      core.Date      `json:"date"`
	Equipment core.Equipment `json:"equipment"`
	Hours     int            `json:"hours"`
	Minutes   int            `json:"minutes"`
}

type paymentRequest struct {
	Date   core.Date  `json:"date"`
	Amount core.Money `json:"amount"`
}

func (s *Server) handleCreateWorkLog(w http.ResponseWriter, r *http.Request) {
	var body workLogRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	entry, err := sessionFrom(r).AddWorkLog(ledger.WorkLogInput{
		CustomerID: pathID(r, "customerID"),
		Date:       body.Date,
		Equipment:  body.Equipment,
		Hours:      body.Hours,
		Minutes:    body.Minutes,
	})
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(entry).Write(w)
}

func (s *Server) handleUpdateWorkLog(w http.ResponseWriter, r *http.Request) {
	var edit ledger.WorkLogEdit
	if err := decodeJSON(r, &edit); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	entry, err := sessionFrom(r).UpdateWorkLog(pathID(r, "workLogID"), edit)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

func (s *Server) handleDeleteWorkLog(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).DeleteWorkLog(pathID(r, "workLogID"))
	NoContent().Write(w)
}

// handleAddPayment records a payment; a missing date means today.
func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, log.OpPay, err)
		return
	}
	if body.Date.IsEmpty() {
		body.Date = core.Today()
	}
	entry, err := sessionFrom(r).AddPayment(pathID(r, "workLogID"), body.Date, body.Amount)
	if err != nil {
		writeError(w, r, log.OpPay, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(entry).Write(w)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	entry, err := sessionFrom(r).DeletePayment(pathID(r, "workLogID"), pathID(r, "paymentID"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}
