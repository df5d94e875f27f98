package http

import (
	"net/http"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/ledger"
	"github.com/omrishi123/tractortrack/internal/log"
)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	term := sanitizeInput(r.URL.Query().Get("q"))
	NewJSONResponse().Body(sessionFrom(r).SearchCustomers(term)).Write(w)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in ledger.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Phone = sanitizeInput(in.Phone)
	in.Address = sanitizeInput(in.Address)
	in.Notes = sanitizeInput(in.Notes)

	c, err := sessionFrom(r).AddCustomer(in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var c core.Customer
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	c.ID = pathID(r, "customerID")
	c.Name = sanitizeInput(c.Name)
	c.Phone = sanitizeInput(c.Phone)
	c.Address = sanitizeInput(c.Address)

	updated, err := sessionFrom(r).UpdateCustomer(c)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleUpdateCustomerNotes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := sessionFrom(r).UpdateCustomerNotes(pathID(r, "customerID"), sanitizeInput(body.Notes)); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NoContent().Write(w)
}

// handleDeleteCustomer removes the customer and all of its work entries.
// Unknown ids are not an error.
func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).DeleteCustomer(pathID(r, "customerID"))
	NoContent().Write(w)
}

func (s *Server) handleCustomerLedger(w http.ResponseWriter, r *http.Request) {
	l, err := sessionFrom(r).CustomerLedger(pathID(r, "customerID"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(l).Write(w)
}

func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	entries, err := sessionFrom(r).Outstanding(pathID(r, "customerID"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(entries).Write(w)
}
