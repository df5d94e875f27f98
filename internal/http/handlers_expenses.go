package http

import (
	"net/http"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/ledger"
	"github.com/omrishi123/tractortrack/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in ledger.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)

	e, err := sessionFrom(r).AddExpense(in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(e).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	e.ID = pathID(r, "expenseID")
	e.Category = sanitizeInput(e.Category)
	e.Description = sanitizeInput(e.Description)

	updated, err := sessionFrom(r).UpdateExpense(e)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).DeleteExpense(pathID(r, "expenseID"))
	NoContent().Write(w)
}
