package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /__/probe", handler.Probe)
}

func registerFixtureRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /api/fixtures", handler.GetFixtures)
	mux.HandleFunc("GET /api/fixtures/today", handler.GetFixturesToday)
	mux.HandleFunc("GET /api/fixtures/tomorrow", handler.GetFixturesTomorrow)
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, adminToken string) {
	mux.Handle("GET /admin/precache", RequireAdminToken(adminToken, http.HandlerFunc(handler.Precache)))
	mux.Handle("POST /admin/precache", RequireAdminToken(adminToken, http.HandlerFunc(handler.Precache)))
	mux.Handle("GET /admin/flush-cache", RequireAdminToken(adminToken, http.HandlerFunc(handler.FlushCache)))
	mux.Handle("POST /admin/flush-cache", RequireAdminToken(adminToken, http.HandlerFunc(handler.FlushCache)))
}
