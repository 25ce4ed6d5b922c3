package httpadapter

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"

	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/ports"
	"svw.info/hunt/internal/usecase"
)

// DefaultCookie names the cookie carrying the player's session id.
const DefaultCookie = "hunt_session"

type Handler struct {
	UC        *usecase.Service
	Cookie    string
	Templates *template.Template
}

func New(uc *usecase.Service) *Handler { return &Handler{UC: uc, Cookie: DefaultCookie} }

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/hunt", h.handleHunt)
	mux.HandleFunc("/api/progress", h.handleProgress)
	mux.HandleFunc("/api/answer", h.handleAnswer)
	mux.HandleFunc("/api/next", h.handleNext)
	mux.HandleFunc("/api/previous", h.handlePrevious)
	mux.HandleFunc("/api/goto", h.handleGoTo)
	mux.HandleFunc("/api/reset", h.handleReset)
	mux.HandleFunc("/api/resume", h.handleResume)
	mux.HandleFunc("/api/screens", h.handleScreens)
	mux.HandleFunc("/api/screens/splash", h.handleSplashSeen)
	mux.HandleFunc("/api/screens/intro", h.handleIntroSeen)
	mux.HandleFunc("/api/summary", h.handleSummary)
	if h.Templates != nil {
		mux.HandleFunc("/summary", h.handleSummaryPage)
	}
}

// session returns the caller's session id, issuing a new cookie when absent.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	name := h.Cookie
	if name == "" {
		name = DefaultCookie
	}
	if c, err := r.Cookie(name); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().AddDate(1, 0, 0),
	})
	return id
}

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrUnknownStep):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrHuntNotCompleted):
		status = http.StatusConflict
	case errors.Is(err, usecase.ErrNoSession):
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errResp{Error: err.Error()})
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.Method != method {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// ---- Hunt ----

// stepView is the public face of a step: answers and correct indices stay server-side.
type stepView struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Prompt  string   `json:"prompt"`
	Hint    string   `json:"hint,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

type huntResp struct {
	Title string     `json:"title"`
	Steps []stepView `json:"steps"`
}

func viewOf(s domain.Step) stepView {
	v := stepView{ID: s.ID, Title: s.Title, Prompt: s.Prompt, Hint: s.Hint}
	switch ch := s.Challenge.(type) {
	case domain.Riddle:
		v.Type = string(domain.KindRiddle)
	case domain.Choice:
		v.Type = string(domain.KindChoice)
		v.Choices = ch.Choices
	}
	return v
}

func (h *Handler) handleHunt(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	hunt, err := h.UC.Hunt()
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := huntResp{Title: hunt.Title, Steps: make([]stepView, 0, len(hunt.Steps))}
	for _, s := range hunt.Steps {
		resp.Steps = append(resp.Steps, viewOf(s))
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// ---- Progress ----

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	snap, err := h.UC.Progress(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

// ---- Answer ----

type answerReq struct {
	StepID string `json:"stepId"`
	Answer string `json:"answer,omitempty"`
	Choice *int   `json:"choice,omitempty"`
}

type answerResp struct {
	Correct  bool            `json:"correct"`
	Success  string          `json:"success,omitempty"`
	Progress domain.Snapshot `json:"progress"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req answerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StepID == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errResp{Error: "invalid JSON or missing stepId"})
		return
	}
	sub := ports.Submission{Text: req.Answer, Index: -1}
	if req.Choice != nil {
		sub.Index = *req.Choice
	}
	res, err := h.UC.Submit(r.Context(), h.session(w, r), req.StepID, sub)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(answerResp{Correct: res.Correct, Success: res.Success, Progress: res.Progress})
}

// ---- Navigation ----

type navResp struct {
	Applied  bool            `json:"applied"`
	Progress domain.Snapshot `json:"progress"`
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	applied, snap, err := h.UC.Next(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(navResp{Applied: applied, Progress: snap})
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	applied, snap, err := h.UC.Previous(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(navResp{Applied: applied, Progress: snap})
}

type gotoReq struct {
	Index int `json:"index"`
}

func (h *Handler) handleGoTo(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req gotoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	applied, snap, err := h.UC.GoTo(r.Context(), h.session(w, r), req.Index)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(navResp{Applied: applied, Progress: snap})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	snap, err := h.UC.Reset(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(navResp{Applied: true, Progress: snap})
}

type resumeResp struct {
	Index  int    `json:"index"`
	StepID string `json:"stepId"`
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	idx, stepID, err := h.UC.Resume(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(resumeResp{Index: idx, StepID: stepID})
}

// ---- Screens ----

func (h *Handler) handleScreens(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	st, err := h.UC.Screens(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(st)
}

func (h *Handler) handleSplashSeen(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	st, err := h.UC.MarkSplashSeen(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(st)
}

func (h *Handler) handleIntroSeen(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	st, err := h.UC.MarkIntroSeen(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(st)
}

// ---- Summary ----

type summaryResp struct {
	Title    string          `json:"title"`
	Steps    []stepView      `json:"steps"`
	Progress domain.Snapshot `json:"progress"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	hunt, snap, err := h.UC.Summary(r.Context(), h.session(w, r))
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := summaryResp{Title: hunt.Title, Progress: snap}
	for _, s := range hunt.Steps {
		resp.Steps = append(resp.Steps, viewOf(s))
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// handleSummaryPage sends players who have not finished back to the start.
func (h *Handler) handleSummaryPage(w http.ResponseWriter, r *http.Request) {
	hunt, snap, err := h.UC.Summary(r.Context(), h.session(w, r))
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := map[string]any{"Hunt": hunt, "Progress": snap}
	if err := h.Templates.ExecuteTemplate(w, "summary.tmpl", data); err != nil {
		http.Error(w, template.HTMLEscapeString(err.Error()), http.StatusInternalServerError)
	}
}
