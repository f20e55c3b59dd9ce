// internal/handler/lead_handler_test.go
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appErrors "github.com/unclebandit/hyperdrip/internal/errors"
	"github.com/unclebandit/hyperdrip/internal/model"
)

type fakeLeadRepo struct {
	createFn func(model.Draft) (*model.Lead, error)
	getFn    func(string) (*model.Lead, error)
}

func (f *fakeLeadRepo) Create(draft model.Draft) (*model.Lead, error) { return f.createFn(draft) }
func (f *fakeLeadRepo) Get(id string) (*model.Lead, error)            { return f.getFn(id) }
func (f *fakeLeadRepo) Advance(id string, patch func(*model.Lead) error) (*model.Lead, error) {
	return nil, nil
}
func (f *fakeLeadRepo) CountSentBetween(start, end time.Time) (int, error) { return 0, nil }

func postJSON(h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateLead_RejectsNonPositiveMaxMessages(t *testing.T) {
	h := &LeadHandler{LeadRepo: &fakeLeadRepo{}}
	rec := postJSON(h.CreateLead, map[string]any{"email": "a@example.com", "maxMessages": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateLead_DuplicateKey_Returns409(t *testing.T) {
	repo := &fakeLeadRepo{
		createFn: func(d model.Draft) (*model.Lead, error) {
			return nil, appErrors.NewDuplicateKey("email", d.Email)
		},
	}
	h := &LeadHandler{LeadRepo: repo}
	rec := postJSON(h.CreateLead, map[string]any{"email": "dup@example.com", "maxMessages": 3})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateLead_TransientStoreError_Returns503(t *testing.T) {
	repo := &fakeLeadRepo{
		createFn: func(d model.Draft) (*model.Lead, error) {
			return nil, appErrors.NewTransientStore("create", errHelper("db unavailable"))
		},
	}
	h := &LeadHandler{LeadRepo: repo}
	rec := postJSON(h.CreateLead, map[string]any{"email": "x@example.com", "maxMessages": 3})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestGetLead_NotFound_Returns404(t *testing.T) {
	repo := &fakeLeadRepo{
		getFn: func(id string) (*model.Lead, error) { return nil, nil },
	}
	h := &LeadHandler{LeadRepo: repo}

	req := httptest.NewRequest(http.MethodGet, "/leads/missing", nil)
	rec := httptest.NewRecorder()
	h.GetLead(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetLead_Found_ReturnsLeadJSON(t *testing.T) {
	want := &model.Lead{ID: "l1", Email: "a@example.com", MaxMessages: 3, Status: model.StatusActive}
	repo := &fakeLeadRepo{
		getFn: func(id string) (*model.Lead, error) { return want, nil },
	}
	h := &LeadHandler{LeadRepo: repo}

	req := httptest.NewRequest(http.MethodGet, "/leads/l1", nil)
	rec := httptest.NewRecorder()
	h.GetLead(rec, req, "l1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got model.Lead
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("expected id %s, got %s", want.ID, got.ID)
	}
}

type errHelper string

func (e errHelper) Error() string { return string(e) }
