package trigger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/formfill/kit"
	"github.com/hazyhaar/formfill/profile"
	"github.com/hazyhaar/formfill/safeurl"
)

// Handler returns the HTTP surface:
//
//	GET    /health
//	POST   /v1/trigger          Command -> Response
//	GET    /v1/profile
//	GET    /v1/profile/{key}
//	PUT    /v1/profile          {"entries": [...], "replace": bool}
//	DELETE /v1/profile
//	DELETE /v1/profile/{key}
func (r *Router) Handler() http.Handler {
	ep := r.endpoints()

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(securityHeaders)
	mux.Use(requestContext)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	mux.Post("/v1/trigger", func(w http.ResponseWriter, req *http.Request) {
		body, err := safeurl.LimitedReadAll(req.Body, safeurl.MaxBody)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		var cmd Command
		if err := json.Unmarshal(body, &cmd); err != nil {
			writeError(w, 400, err)
			return
		}
		serve(w, req, ep.trigger, &cmd)
	})

	mux.Route("/v1/profile", func(pr chi.Router) {
		pr.Get("/", func(w http.ResponseWriter, req *http.Request) {
			serve(w, req, ep.profileGet, nil)
		})
		pr.Get("/{key}", func(w http.ResponseWriter, req *http.Request) {
			serve(w, req, ep.profileEntry, &keyRequest{Key: chi.URLParam(req, "key")})
		})
		pr.Put("/", func(w http.ResponseWriter, req *http.Request) {
			var in profileSetRequest
			if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, safeurl.MaxBody)).Decode(&in); err != nil {
				writeError(w, 400, err)
				return
			}
			serve(w, req, ep.profileSet, &in)
		})
		pr.Delete("/", func(w http.ResponseWriter, req *http.Request) {
			serve(w, req, ep.profileClear, nil)
		})
		pr.Delete("/{key}", func(w http.ResponseWriter, req *http.Request) {
			serve(w, req, ep.profileDel, &keyRequest{Key: chi.URLParam(req, "key")})
		})
	})

	return mux
}

// requestContext copies the chi request id into the kit context.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// securityHeaders locks the JSON API down: no sniffing, no framing, no
// referrer, no active content.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

func serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, in any) {
	resp, err := ep(r.Context(), in)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, 200, resp)
}

// statusFor maps command errors to HTTP status codes.
func statusFor(err error) int {
	var unknown *ErrUnknownAction
	switch {
	case errors.As(err, &unknown),
		errors.Is(err, ErrNoTarget),
		errors.Is(err, profile.ErrEmptyKey),
		errors.Is(err, safeurl.ErrInternalPage),
		errors.Is(err, safeurl.ErrUnsafeScheme),
		errors.Is(err, safeurl.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, safeurl.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNoBrowser):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
