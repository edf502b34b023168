package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"shop-assistant/internal/infra/handlers"
)

type Routes struct {
	Mux            *mux.Router
	HttpHandler    *handlers.HttpHandlers
	MetricsHandler http.Handler
}

func NewRoutes(mux *mux.Router, httpHandler *handlers.HttpHandlers, metricsHandler http.Handler) *Routes {
	return &Routes{Mux: mux, HttpHandler: httpHandler, MetricsHandler: metricsHandler}
}

func (r *Routes) Init() {
	conversations := r.Mux.PathPrefix("/conversations/{id}").Subrouter()
	conversations.HandleFunc("/messages", r.HttpHandler.PostMessage).Methods(http.MethodPost)
	conversations.HandleFunc("/context", r.HttpHandler.GetContext).Methods(http.MethodGet)
	conversations.HandleFunc("/interactions", r.HttpHandler.GetInteractions).Methods(http.MethodGet)
	conversations.HandleFunc("/interactions", r.HttpHandler.PostInteraction).Methods(http.MethodPost)

	r.Mux.HandleFunc("/healthCheck", r.HttpHandler.HealthCheck).Methods(http.MethodGet)
	if r.MetricsHandler != nil {
		r.Mux.Handle("/metrics", r.MetricsHandler).Methods(http.MethodGet)
	}
}
