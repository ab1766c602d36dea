package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"event-catalog/internal/model"
)

// Error codes carried in the envelope.
const (
	CodeMissingParams       = "11"
	CodeNotFound            = "44"
	CodeSearchFailed        = "55"
	CodeIngestionNotStarted = "77"
)

// envelope is the body of every JSON response except GET /. Exactly one of
// Data and Error is non-nil.
type envelope struct {
	Data  any       `json:"data"`
	Meta  any       `json:"meta"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchData struct {
	Events []eventView `json:"events"`
}

type searchMeta struct {
	Limit  uint64 `json:"limit"`
	Offset uint64 `json:"offset"`
}

// eventView splits each timestamp into a UTC date and time of day.
type eventView struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartDate string  `json:"start_date"`
	StartTime string  `json:"start_time"`
	EndDate   string  `json:"end_date"`
	EndTime   string  `json:"end_time"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

func newEventView(e model.Event) eventView {
	start, end := e.StartTime.UTC(), e.EndTime.UTC()
	return eventView{
		ID:        e.ID.String(),
		Title:     e.Title,
		StartDate: start.Format(dateLayout),
		StartTime: start.Format(clockLayout),
		EndDate:   end.Format(dateLayout),
		EndTime:   end.Format(clockLayout),
		MinPrice:  e.MinPrice,
		MaxPrice:  e.MaxPrice,
	}
}

func newSearchData(events []model.Event) searchData {
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	return searchData{Events: views}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeData(w http.ResponseWriter, data, meta any) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}
