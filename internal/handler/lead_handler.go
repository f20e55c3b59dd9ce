// internal/handler/lead_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	appErrors "github.com/unclebandit/hyperdrip/internal/errors"
	"github.com/unclebandit/hyperdrip/internal/model"
	"github.com/unclebandit/hyperdrip/internal/repository"
	"github.com/unclebandit/hyperdrip/internal/scheduler"
)

// LeadHandler is the thin internal seam between an already-validated
// lead draft and the scheduler. It is not the HTTP form/validation
// front-end the spec places out of scope — that layer is assumed to
// have already checked name/email/phone well-formedness before this
// handler is ever reached.
type LeadHandler struct {
	LeadRepo  repository.LeadRepositoryInterface
	Scheduler *scheduler.Scheduler
}

type createLeadRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Notes       string `json:"notes"`
	MaxMessages int    `json:"maxMessages"`
}

// CreateLead admits a lead: persist it, then fan its messages out
// across day-queues. DuplicateKey surfaces as 409; any transient
// store error surfaces as 503 and no scheduling is attempted.
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.MaxMessages < 1 {
		http.Error(w, "maxMessages must be positive", http.StatusBadRequest)
		return
	}

	lead, err := h.LeadRepo.Create(model.Draft{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Notes:       req.Notes,
		MaxMessages: req.MaxMessages,
	})
	if err != nil {
		switch err.(type) {
		case *appErrors.DuplicateKeyError:
			http.Error(w, err.Error(), http.StatusConflict)
		case *appErrors.TransientStoreError:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	// Per-message enqueue failures inside Admit are logged and
	// swallowed there (the lead row is still durably created); Admit
	// only returns an error when the final lead-state write itself
	// fails, which is a TransientStoreError the admission caller must
	// see.
	if err := h.Scheduler.Admit(lead); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(lead)
}

// GetLead fetches a single lead by id for operational visibility.
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request, id string) {
	lead, err := h.LeadRepo.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if lead == nil {
		http.Error(w, appErrors.NewLeadNotFound(id).Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lead)
}
