// CLAUDE:SUMMARY chi routes exposing the window: list/open/close views, navigation commands, thumbnails, session.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/tabview/kit"
	"github.com/hazyhaar/tabview/shield"
	"github.com/hazyhaar/tabview/thumbnail"
)

// NewRouter returns the HTTP API for win. mws run after the default shield
// stack, e.g. a rate limiter.
//
//	GET    /health
//	GET    /api/views                 ?order=render for mount order
//	POST   /api/views                 {"uri": "..."}
//	GET    /api/views/{id}
//	DELETE /api/views/{id}
//	POST   /api/views/{id}/navigate   {"uri": "..."}
//	POST   /api/views/{id}/move       {"position": n}
//	POST   /api/views/{id}/{command}  reload, stop, back, forward, zoom-in, zoom-out, zoom-reset, select, pin, unpin
//	GET    /api/views/{id}/thumbnail
//	GET    /api/session
//	POST   /api/session/save
//	GET    /api/diagnostics           ?view=id&limit=n
func NewRouter(win *Window, logger *slog.Logger, mws ...func(http.Handler) http.Handler) chi.Router {
	ep := newEndpoints(win, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(shield.DefaultAPIStack()...)
	r.Use(mws...)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "ok", "views": len(win.Views())})
	})

	r.Route("/api/views", func(r chi.Router) {
		r.Get("/", serve(ep.list, 200, func(r *http.Request) (any, error) {
			return &listViewsRequest{Order: r.URL.Query().Get("order")}, nil
		}))
		r.Post("/", serve(ep.open, 201, func(r *http.Request) (any, error) {
			var req openViewRequest
			return &req, decodeBody(r, &req)
		}))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", serve(ep.get, 200, func(r *http.Request) (any, error) {
				return &viewRequest{ID: chi.URLParam(r, "id")}, nil
			}))
			r.Delete("/", serve(ep.close, 200, func(r *http.Request) (any, error) {
				return &viewRequest{ID: chi.URLParam(r, "id")}, nil
			}))
			r.Post("/navigate", serve(ep.navigate, 200, func(r *http.Request) (any, error) {
				req := navigateRequest{ID: chi.URLParam(r, "id")}
				err := decodeBody(r, &req)
				req.ID = chi.URLParam(r, "id")
				return &req, err
			}))
			r.Post("/move", serve(ep.move, 200, func(r *http.Request) (any, error) {
				var req moveRequest
				err := decodeBody(r, &req)
				req.ID = chi.URLParam(r, "id")
				return &req, err
			}))
			r.Get("/thumbnail", func(w http.ResponseWriter, r *http.Request) {
				id := chi.URLParam(r, "id")
				if _, ok := win.View(id); !ok {
					writeError(w, 404, fmt.Errorf("%w: %s", ErrNotFound, id))
					return
				}
				img, ok := win.Thumbnail(id)
				if !ok {
					writeError(w, 404, thumbnail.ErrNotFound)
					return
				}
				w.Header().Set("Content-Type", img.MIME)
				w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(200)
				w.Write(img.Data)
			})
			r.Post("/{command}", serve(ep.command, 200, func(r *http.Request) (any, error) {
				return &commandRequest{ID: chi.URLParam(r, "id"), Command: chi.URLParam(r, "command")}, nil
			}))
		})
	})

	r.Get("/api/session", serve(ep.session, 200, func(*http.Request) (any, error) { return nil, nil }))
	r.Post("/api/session/save", serve(ep.saveSession, 200, func(*http.Request) (any, error) { return nil, nil }))

	r.Get("/api/diagnostics", serve(ep.diagnostics, 200, func(r *http.Request) (any, error) {
		return &diagnosticsRequest{ID: r.URL.Query().Get("view"), Limit: queryInt(r, "limit", 50)}, nil
	}))

	return r
}

// serve adapts an endpoint to HTTP. decode builds the request; a decode
// error is a 400.
func serve(ep kit.Endpoint, code int, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(r.Context()))

		resp, err := ep(ctx, req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, code, resp)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrUnknownCommand):
		return 400
	case errors.Is(err, context.DeadlineExceeded):
		return 504
	}
	return 500
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body: %v", ErrInvalid, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
