package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/everify-tester/internal/everify"
)

// MountAPI registers the JSON routes. The router must already carry the
// WithWorkspace middleware.
func MountAPI(r chi.Router, h *Handlers) {
	r.Get("/config", h.getConfig)
	r.Patch("/config", h.patchConfig)
	r.Get("/session", h.getSession)
	r.Delete("/session", h.deleteSession)

	r.Post("/auth", h.postAuth)
	r.Post("/query", h.postQuery)
	r.Post("/qr/check", h.postQRCheck)
	r.Post("/qr/verify", h.postQRVerify)

	r.Get("/history", h.getHistory)
	r.Get("/testdata", h.getTestData)
}

type configView struct {
	everify.Config
	BaseURL         string `json:"baseUrl"`
	TierLabel       string `json:"tierLabel"`
	CanAuthenticate bool   `json:"canAuthenticate"`
}

func newConfigView(s *everify.Store) configView {
	cfg := s.Config()
	return configView{
		Config:          cfg.Redacted(),
		BaseURL:         s.BaseURL(),
		TierLabel:       cfg.TierLabel(),
		CanAuthenticate: cfg.CanAuthenticate(),
	}
}

func (h *Handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	respondJSON(w, http.StatusOK, newConfigView(ws.Store))
}

type patchConfigReq struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *Handlers) patchConfig(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	var req patchConfigReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := ws.Store.Set(everify.Field(req.Field), req.Value); err != nil {
		if errors.Is(err, everify.ErrUnknownField) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.logger().Info("config changed", "workspace_id", ws.ID, "field", req.Field)
	respondJSON(w, http.StatusOK, newConfigView(ws.Store))
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	respondJSON(w, http.StatusOK, ws.Session.State())
}

func (h *Handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	ws.ClearToken()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) postAuth(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	res, err := ws.Dispatcher.Authenticate(r.Context())
	h.respondResult(w, res, err)
}

// postQuery verifies the posted person, or the person in the workspace form
// when the body is empty. The QR routes fall back to the form the same way,
// field by field.
func (h *Handlers) postQuery(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	var p everify.Person
	ok, err := decodeOptional(r.Body, &p)
	if err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !ok {
		p = ws.Forms().Person
	}
	res, err := ws.Dispatcher.VerifyPerson(r.Context(), p)
	h.respondResult(w, res, err)
}

func (h *Handlers) postQRCheck(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	req := everify.QRCheckRequest{Value: ws.Forms().QRValue}
	if _, err := decodeOptional(r.Body, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := ws.Dispatcher.CheckQR(r.Context(), req.Value)
	h.respondResult(w, res, err)
}

func (h *Handlers) postQRVerify(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	f := ws.Forms()
	req := everify.QRVerifyRequest{Value: f.QRValue, FaceLivenessSessionID: f.QRLivenessID}
	if _, err := decodeOptional(r.Body, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := ws.Dispatcher.VerifyQR(r.Context(), req.Value, req.FaceLivenessSessionID)
	h.respondResult(w, res, err)
}

func (h *Handlers) getHistory(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	if h.History == nil {
		respondJSON(w, http.StatusOK, []any{})
		return
	}
	limit := h.historyLimit()
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v < limit {
		limit = v
	}
	items, err := h.History.List(r.Context(), ws.ID, limit)
	if err != nil {
		h.logger().Error("history list failed", "workspace_id", ws.ID, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

type testDataView struct {
	QRSamples           []everify.QRSample `json:"qr_samples"`
	SamplePerson        everify.Person     `json:"sample_person"`
	DefaultQRValue      string             `json:"default_qr_value"`
	DefaultQRLivenessID string             `json:"default_qr_liveness_id"`
}

func (h *Handlers) getTestData(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, testDataView{
		QRSamples:           everify.SandboxQRSamples(),
		SamplePerson:        everify.SamplePerson(),
		DefaultQRValue:      everify.DefaultQRValue,
		DefaultQRLivenessID: everify.DefaultQRLivenessID,
	})
}

// respondResult always returns the dispatch result; the status code tells
// scripted callers which kind of failure happened.
func (h *Handlers) respondResult(w http.ResponseWriter, res everify.Result, err error) {
	respondJSON(w, resultStatus(err), res)
}

func resultStatus(err error) int {
	var te *everify.TransportError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, everify.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, everify.ErrNoCredential):
		return http.StatusPreconditionFailed
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		// Unsuccessful upstream status: the upstream code is in the body.
		return http.StatusOK
	}
}

// decodeOptional decodes a JSON body into v. An empty body leaves v as is
// and reports false.
func decodeOptional(body io.Reader, v any) (bool, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}
