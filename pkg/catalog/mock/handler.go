package mock

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gsconfig-go/gsconfig/internal/httpx"
)

// Handler exposes m over HTTP under its service URL path, so a catalog
// pointed at http://host<BasePath> talks to the mock through real requests.
// Extra middleware runs before the REST routes.
func Handler(m *Mock, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)
	r.Use(middlewares...)

	mount := func(r chi.Router) {
		r.Get("/*", m.serveGet)
		r.Post("/*", m.serveSend)
		r.Put("/*", m.serveSend)
	}
	if m.basePath == "" {
		mount(r)
	} else {
		r.Route(m.basePath, mount)
	}
	return r
}

func (m *Mock) href(r *http.Request) string {
	href := m.serviceURL + "/" + chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		href += "?" + r.URL.RawQuery
	}
	return href
}

func (m *Mock) serveGet(w http.ResponseWriter, r *http.Request) {
	data, err := m.GetRaw(r.Context(), m.href(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", httpx.ContentTypeXML)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (m *Mock) serveSend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := m.SendRaw(r.Context(), r.Method, m.href(r), body); err != nil {
		writeError(w, err)
		return
	}
	if r.Method == http.MethodPost {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, err error) {
	status := httpx.StatusCode(err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	msg := err.Error()
	if httpErr, ok := err.(*httpx.HTTPError); ok {
		msg = string(httpErr.Body)
	}
	http.Error(w, msg, status)
}
