package http

import (
	"net/http"

	"receiptbook/internal/core"
	"receiptbook/internal/session"
)

type dashboardResponse struct {
	Owner             string               `json:"owner"`
	Total             int64                `json:"total"`
	MonthlySums       map[core.Month]int64 `json:"monthly_sums"`
	MonthlyAverage    float64              `json:"monthly_average"`
	Months            []core.Month         `json:"months"`
	Items             []lineItemJSON       `json:"items"`
	Excluded          int                  `json:"excluded_rows"`
	DuplicatesRemoved int                  `json:"duplicates_removed"`
}

type lineItemJSON struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

func toLineItemJSON(items []core.LineItem) []lineItemJSON {
	out := make([]lineItemJSON, 0, len(items))
	for _, li := range items {
		out = append(out, lineItemJSON{
			Date:     li.Date.String(),
			Name:     li.Name,
			Quantity: li.Quantity,
			Category: li.Category,
			Amount:   li.Amount,
		})
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	dash, err := s.dashboard.Dashboard(r.Context(), sess.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Owner:             dash.Owner,
		Total:             dash.Total,
		MonthlySums:       dash.MonthlySums,
		MonthlyAverage:    dash.MonthlyAverage,
		Months:            dash.Months,
		Items:             toLineItemJSON(dash.Items),
		Excluded:          dash.Excluded,
		DuplicatesRemoved: dash.DuplicatesRemoved,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	month, err := core.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "month must be formatted YYYY-MM")
		return
	}

	breakdown, err := s.dashboard.CategoryBreakdown(r.Context(), sess.Username, month)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"month":      month,
		"categories": breakdown,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	term := r.URL.Query().Get("q")

	items, err := s.dashboard.Search(r.Context(), sess.Username, term)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query": term,
		"items": toLineItemJSON(items),
	})
}
