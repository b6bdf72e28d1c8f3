// CLAUDE:SUMMARY Transport-agnostic endpoints over a Window, shared by the HTTP routes and the MCP tools.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"

	"github.com/hazyhaar/tabview/kit"
	"github.com/hazyhaar/tabview/viewstate"
)

// ErrInvalid is returned for malformed requests.
var ErrInvalid = errors.New("shell: invalid request")

type listViewsRequest struct {
	Order string `json:"order,omitempty"` // "display" (default) | "render"
}

type openViewRequest struct {
	URI    string `json:"uri"`
	Pinned bool   `json:"pinned,omitempty"`
}

type viewRequest struct {
	ID string `json:"id"`
}

type navigateRequest struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

type commandRequest struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

type moveRequest struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

type diagnosticsRequest struct {
	ID    string `json:"id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// endpoints binds every operation of a Window to a kit.Endpoint.
type endpoints struct {
	list        kit.Endpoint
	open        kit.Endpoint
	get         kit.Endpoint
	navigate    kit.Endpoint
	command     kit.Endpoint
	move        kit.Endpoint
	close       kit.Endpoint
	session     kit.Endpoint
	saveSession kit.Endpoint
	diagnostics kit.Endpoint
}

func newEndpoints(win *Window, logger *slog.Logger) endpoints {
	if logger == nil {
		logger = slog.Default()
	}
	wrap := func(op string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(logger, op))(ep)
	}

	return endpoints{
		list: wrap("list_views", func(_ context.Context, req any) (any, error) {
			r := req.(*listViewsRequest)
			switch r.Order {
			case "", "display":
				return win.Views(), nil
			case "render":
				return win.RenderOrder(), nil
			}
			return nil, fmt.Errorf("%w: order must be display or render", ErrInvalid)
		}),

		open: wrap("open_view", func(ctx context.Context, req any) (any, error) {
			r := req.(*openViewRequest)
			if r.URI != "" {
				if err := validURI(r.URI); err != nil {
					return nil, err
				}
			}
			return win.Open(ctx, r.URI, viewstate.WithPinned(r.Pinned))
		}),

		get: wrap("get_view", func(_ context.Context, req any) (any, error) {
			r := req.(*viewRequest)
			s, ok := win.View(r.ID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, r.ID)
			}
			return s, nil
		}),

		navigate: wrap("navigate", func(ctx context.Context, req any) (any, error) {
			r := req.(*navigateRequest)
			if err := validURI(r.URI); err != nil {
				return nil, err
			}
			if err := win.Navigate(ctx, r.ID, r.URI); err != nil {
				return nil, err
			}
			s, _ := win.View(r.ID)
			return s, nil
		}),

		command: wrap("command", func(ctx context.Context, req any) (any, error) {
			r := req.(*commandRequest)
			if !slices.Contains(Commands, r.Command) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, r.Command)
			}
			return win.Command(ctx, r.ID, r.Command)
		}),

		move: wrap("move_view", func(_ context.Context, req any) (any, error) {
			r := req.(*moveRequest)
			if err := win.Move(r.ID, r.Position); err != nil {
				return nil, err
			}
			return win.Views(), nil
		}),

		close: wrap("close_view", func(ctx context.Context, req any) (any, error) {
			r := req.(*viewRequest)
			if err := win.CloseView(ctx, r.ID); err != nil {
				return nil, err
			}
			return map[string]string{"closed": r.ID}, nil
		}),

		session: wrap("session", func(context.Context, any) (any, error) {
			return win.Session(), nil
		}),

		saveSession: wrap("save_session", func(ctx context.Context, _ any) (any, error) {
			n, err := win.SaveSession(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]int{"saved": n}, nil
		}),

		diagnostics: wrap("diagnostics", func(ctx context.Context, req any) (any, error) {
			r := req.(*diagnosticsRequest)
			if win.opts.Store == nil {
				return []Diagnostic{}, nil
			}
			return win.opts.Store.Diagnostics().Recent(ctx, r.ID, r.Limit)
		}),
	}
}

// validURI accepts absolute URIs with a scheme, e.g. https://…, about:blank.
func validURI(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: uri is required", ErrInvalid)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: uri: %v", ErrInvalid, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: uri %q has no scheme", ErrInvalid, raw)
	}
	return nil
}
