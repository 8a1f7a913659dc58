package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/causalfunnel/cartsurvey/internal/services"
)

// Options carries the request-independent knobs the router needs.
type Options struct {
	// StrictAnswers turns on answer validation against the current survey
	// at submission time. Off by default: answers are opaque strings.
	StrictAnswers bool
	// WebhookSecret is the Shopify app secret used to verify webhook
	// signatures. Empty disables verification (development only).
	WebhookSecret string
}

type Router struct {
	store     Store
	surveys   *services.SurveyService
	responses *services.ResponseService
	opts      Options
}

func NewRouter(store Store, opts Options) *Router {
	return &Router{
		store:     store,
		surveys:   services.NewSurveyService(store),
		responses: services.NewResponseService(store, opts.StrictAnswers),
		opts:      opts,
	}
}

// Register mounts all API routes. adminGuard wraps the builder-only routes
// (session-token auth), proxyGuard wraps the storefront-only routes
// (app-proxy signature), and readGuard wraps the survey read routes that both
// the builder and the storefront widget fetch (either credential must pass).
// Any guard may be nil.
func (rt *Router) Register(m *mux.Router, adminGuard, readGuard, proxyGuard mux.MiddlewareFunc) {
	admin := m.PathPrefix("/api").Subrouter()
	if adminGuard != nil {
		admin.Use(adminGuard)
	}
	read := m.PathPrefix("/api").Subrouter()
	if readGuard != nil {
		read.Use(readGuard)
	}
	storefront := m.PathPrefix("/api").Subrouter()
	if proxyGuard != nil {
		storefront.Use(proxyGuard)
	}

	admin.HandleFunc("/survey", rt.handleSaveSurvey).Methods(http.MethodPost)
	// legacy alias kept for old builder installs
	admin.HandleFunc("/surveyQuestions", rt.handleSaveSurvey).Methods(http.MethodPost)
	admin.HandleFunc("/surveyResponses", rt.handleListResponses).Methods(http.MethodGet)
	admin.HandleFunc("/surveyResponses/export", rt.handleExportResponses).Methods(http.MethodGet)

	read.HandleFunc("/survey", rt.handleGetSurvey).Methods(http.MethodGet)
	read.HandleFunc("/survey/form", rt.handleGetSurveyForm).Methods(http.MethodGet)

	storefront.HandleFunc("/survey/submit", rt.handleSubmitResponse).Methods(http.MethodPost)

	m.HandleFunc("/api/webhooks", rt.handleWebhook).Methods(http.MethodPost)
}

// GET /api/survey?shop=...
// Returns the survey verbatim, or {"survey":null} when the shop has none.
// The null-payload 200 is a compatibility contract with the storefront
// widget; the other endpoints return 404 for unknown shops.
func (rt *Router) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, "Shop parameter is required", http.StatusBadRequest)
		return
	}
	survey, err := rt.surveys.GetForShop(r.Context(), shop)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if survey == nil {
		respond(w, map[string]interface{}{"survey": nil}, http.StatusOK)
		return
	}
	respond(w, survey, http.StatusOK)
}

// POST /api/survey (and legacy /api/surveyQuestions)
// Full-replace upsert of the shop's single survey.
func (rt *Router) handleSaveSurvey(w http.ResponseWriter, r *http.Request) {
	var draft services.SurveyDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := rt.surveys.Upsert(r.Context(), draft)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logrus.WithFields(logrus.Fields{"shop": rec.Shop, "questions": len(rec.Survey.Questions)}).Info("survey saved")
	respond(w, map[string]interface{}{
		"success": true,
		"message": "Survey saved successfully",
		"store":   rec,
	}, http.StatusOK)
}

// GET /api/survey/form?shop=...
// Render-ready projection for the storefront widget, defaults included.
func (rt *Router) handleGetSurveyForm(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, "Shop parameter is required", http.StatusBadRequest)
		return
	}
	survey, err := rt.surveys.GetForShop(r.Context(), shop)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if survey == nil {
		respondError(w, "survey not found", http.StatusNotFound)
		return
	}
	respond(w, services.BuildForm(shop, survey), http.StatusOK)
}

// POST /api/survey/submit
func (rt *Router) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := rt.responses.Submit(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logrus.WithFields(logrus.Fields{"shop": resp.Shop, "response_id": resp.ID}).Info("response submitted")
	respond(w, map[string]interface{}{"success": true, "response_id": resp.ID}, http.StatusCreated)
}

// GET /api/surveyResponses?shop=...
func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, "Shop parameter is required", http.StatusBadRequest)
		return
	}
	responses, err := rt.responses.ListForShop(r.Context(), shop)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, responses, http.StatusOK)
}

// GET /api/surveyResponses/export?shop=...
func (rt *Router) handleExportResponses(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, "Shop parameter is required", http.StatusBadRequest)
		return
	}
	responses, err := rt.responses.ListForShop(r.Context(), shop)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	b, err := services.ExportResponsesCSV(responses)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=responses.csv")
	_, _ = w.Write(b)
}
