package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"
	"budgetinsights/internal/services"
)

type insightView struct {
	ID          string            `json:"id"`
	CategoryID  string            `json:"category_id"`
	Month       string            `json:"month"`
	Type        insights.Type     `json:"type"`
	Priority    int               `json:"priority"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Metadata    insights.Metadata `json:"metadata"`
	Dismissed   bool              `json:"dismissed"`
	CreatedAt   time.Time         `json:"created_at"`
	DismissedAt *time.Time        `json:"dismissed_at,omitempty"`
}

func newInsightView(r insights.Record) insightView {
	v := insightView{
		ID:          r.ID,
		CategoryID:  r.CategoryID,
		Month:       r.Month,
		Type:        r.Type,
		Priority:    r.Priority,
		Title:       r.Title,
		Description: r.Description,
		Metadata:    r.Metadata,
		Dismissed:   r.Dismissed,
		CreatedAt:   r.CreatedAt,
	}
	if !r.DismissedAt.IsZero() {
		at := r.DismissedAt
		v.DismissedAt = &at
	}
	return v
}

type categoryView struct {
	CategoryID string             `json:"category_id"`
	Generated  []insights.Insight `json:"generated"`
	Created    []insightView      `json:"created"`
}

func newCategoryView(res services.CategoryResult) categoryView {
	v := categoryView{
		CategoryID: res.CategoryID,
		Generated:  res.Generated,
		Created:    make([]insightView, 0, len(res.Created)),
	}
	if v.Generated == nil {
		v.Generated = []insights.Insight{}
	}
	for _, rec := range res.Created {
		v.Created = append(v.Created, newInsightView(rec))
	}
	return v
}

type faultView struct {
	CategoryID string `json:"category_id"`
	Error      string `json:"error"`
}

type generateView struct {
	UserID     string         `json:"user_id"`
	Month      string         `json:"month"`
	Created    int            `json:"created"`
	Categories []categoryView `json:"categories"`
	Faults     []faultView    `json:"faults"`
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	all := ParseBoolParam(r.URL.Query(), "all")
	recs, err := s.api.ListInsights(r.Context(), r.PathValue("user"), all)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	views := make([]insightView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, newInsightView(rec))
	}
	NewResponse().JSON(map[string]any{"insights": views}).Write(w)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	userID := r.PathValue("user")

	ctx, cancel := context.WithTimeout(r.Context(), s.generateTimeout)
	defer cancel()

	if categoryID := sanitizeInput(r.URL.Query().Get("category")); categoryID != "" {
		res, err := s.api.GenerateForCategory(ctx, userID, categoryID, month)
		if err != nil {
			ServiceError(r, err).Write(w)
			return
		}
		NewResponse().JSON(generateView{
			UserID:     userID,
			Month:      res.Month,
			Created:    len(res.Created),
			Categories: []categoryView{newCategoryView(*res)},
			Faults:     []faultView{},
		}).Write(w)
		return
	}

	res, err := s.api.GenerateForUser(ctx, userID, month)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	view := generateView{
		UserID:     res.UserID,
		Month:      res.Month,
		Created:    res.Created(),
		Categories: make([]categoryView, 0, len(res.Categories)),
		Faults:     make([]faultView, 0, len(res.Faults)),
	}
	for _, c := range res.Categories {
		view.Categories = append(view.Categories, newCategoryView(c))
	}
	for _, f := range res.Faults {
		view.Faults = append(view.Faults, faultView{CategoryID: f.CategoryID, Error: f.Err.Error()})
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.api.DismissInsight(r.Context(), r.PathValue("user"), r.PathValue("id")); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		UnprocessableEntityError(fmt.Sprintf("invalid amount %q", p.Get("amount"))).Write(w)
		return
	}
	month, err := ParseMonthParam(url.Values{"month": {p.Get("month")}}, s.now())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	b := core.Budget{
		UserID:     r.PathValue("user"),
		CategoryID: r.PathValue("category"),
		Month:      month.MonthLabel(),
		Amount:     core.Money{Cents: cents},
	}
	if err := s.api.SetBudget(r.Context(), b); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewResponse().JSON(map[string]string{
		"user_id":     b.UserID,
		"category_id": b.CategoryID,
		"month":       b.Month,
		"amount":      b.Amount.String(),
	}).Write(w)
}
