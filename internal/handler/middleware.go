package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

const (
	// HeaderUserKey carries the caller's user key as resolved by the
	// authenticating proxy.
	HeaderUserKey = "X-User-Key"
	// HeaderPermissions carries the caller's comma separated permissions.
	HeaderPermissions = "X-User-Permissions"
)

type viewerContextKey struct{}

// WithViewer stores the viewer in ctx.
func WithViewer(ctx context.Context, v model.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey{}, v)
}

// ViewerFrom returns the viewer stored by Identity, or an anonymous viewer.
func ViewerFrom(ctx context.Context) model.Viewer {
	if v, ok := ctx.Value(viewerContextKey{}).(model.Viewer); ok {
		return v
	}
	return model.Viewer{Permissions: model.PermissionSet{}}
}

// Identity turns the identity headers set upstream into a model.Viewer.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := model.Viewer{Permissions: model.ParsePermissions(r.Header.Get(HeaderPermissions))}
		if raw := r.Header.Get(HeaderUserKey); raw != "" {
			if key, err := model.ParseUserKey(raw); err == nil {
				viewer.UserKey = &key
			}
		}
		next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewer)))
	})
}

// Logger writes one structured access log line per request.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// CORS allows browser clients from any origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderUserKey+", "+HeaderPermissions)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
