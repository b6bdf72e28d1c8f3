package shell

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/tabview/surface"
	"github.com/hazyhaar/tabview/viewstate"
)

func testServer(t *testing.T, win *Window) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(win, slog.Default()))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func TestHTTP_OpenListCommandClose(t *testing.T) {
	win, fakes := testWindow(t, nil)
	srv := testServer(t, win)

	resp, body := do(t, "POST", srv.URL+"/api/views", `{"uri":"https://a.example/"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("open status = %d: %s", resp.StatusCode, body)
	}
	var opened viewstate.State
	json.Unmarshal(body, &opened)
	if opened.ID != "v1" {
		t.Errorf("opened id = %q", opened.ID)
	}

	_, body = do(t, "GET", srv.URL+"/api/views", "")
	var views []viewstate.State
	json.Unmarshal(body, &views)
	if len(views) != 1 || views[0].URI != "https://a.example/" {
		t.Errorf("views = %s", body)
	}

	resp, body = do(t, "POST", srv.URL+"/api/views/v1/zoom-in", "")
	if resp.StatusCode != 200 {
		t.Fatalf("zoom-in status = %d: %s", resp.StatusCode, body)
	}
	var zoomed viewstate.State
	json.Unmarshal(body, &zoomed)
	if zoomed.Zoom != 1.1 {
		t.Errorf("zoom = %v", zoomed.Zoom)
	}

	resp, _ = do(t, "POST", srv.URL+"/api/views/v1/navigate", `{"uri":"https://b.example/"}`)
	if resp.StatusCode != 200 {
		t.Errorf("navigate status = %d", resp.StatusCode)
	}
	if got := fakes()[0].Commands(); len(got) != 3 || got[2] != "navigate:https://b.example/" {
		t.Errorf("surface commands = %v", got)
	}

	resp, _ = do(t, "DELETE", srv.URL+"/api/views/v1", "")
	if resp.StatusCode != 200 {
		t.Errorf("close status = %d", resp.StatusCode)
	}
	resp, _ = do(t, "GET", srv.URL+"/api/views/v1", "")
	if resp.StatusCode != 404 {
		t.Errorf("get closed view status = %d", resp.StatusCode)
	}
}

func TestHTTP_Errors(t *testing.T) {
	win, _ := testWindow(t, nil)
	srv := testServer(t, win)
	win.Open(context.Background(), "")

	cases := []struct {
		method, path, body string
		want               int
	}{
		{"POST", "/api/views", `{"uri":"no-scheme"}`, 400},
		{"POST", "/api/views", `{`, 400},
		{"POST", "/api/views/v1/explode", "", 400},
		{"POST", "/api/views/v9/reload", "", 404},
		{"POST", "/api/views/v1/navigate", `{"uri":""}`, 400},
		{"GET", "/api/views?order=random", "", 400},
		{"GET", "/api/views/v1/thumbnail", "", 404},
		{"POST", "/api/session/save", "", 500},
	}
	for _, tc := range cases {
		resp, body := do(t, tc.method, srv.URL+tc.path, tc.body)
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s = %d, want %d (%s)", tc.method, tc.path, resp.StatusCode, tc.want, body)
			continue
		}
		var e map[string]string
		if err := json.Unmarshal(body, &e); err != nil || e["error"] == "" {
			t.Errorf("%s %s: body %s has no error field", tc.method, tc.path, body)
		}
	}
}

func TestHTTP_RenderOrderAndMove(t *testing.T) {
	win, _ := testWindow(t, nil)
	srv := testServer(t, win)
	for range 3 {
		win.Open(context.Background(), "")
	}

	resp, body := do(t, "POST", srv.URL+"/api/views/v3/move", `{"position":0}`)
	if resp.StatusCode != 200 {
		t.Fatalf("move status = %d: %s", resp.StatusCode, body)
	}
	var display []viewstate.State
	json.Unmarshal(body, &display)
	if got := ids(display); strings.Join(got, ",") != "v3,v1,v2" {
		t.Errorf("display = %v", got)
	}

	_, body = do(t, "GET", srv.URL+"/api/views?order=render", "")
	var render []viewstate.State
	json.Unmarshal(body, &render)
	if got := ids(render); strings.Join(got, ",") != "v1,v2,v3" {
		t.Errorf("render = %v", got)
	}
}

func TestHTTP_ThumbnailAndDiagnostics(t *testing.T) {
	st := testStore(t)
	win, fakes := testWindow(t, st)
	srv := testServer(t, win)
	win.Open(context.Background(), "https://a.example/")

	f := fakes()[0]
	f.Emit(surface.Event{Kind: surface.LocationChange, Text: "https://a.example/"})
	f.Emit(surface.Event{Kind: surface.LoadEnd})
	f.Emit(surface.Event{Kind: surface.AuthPrompt, Text: "https://a.example/"})
	waitFor(t, "thumbnail", func() bool { _, ok := win.Thumbnail("v1"); return ok })

	resp, body := do(t, "GET", srv.URL+"/api/views/v1/thumbnail", "")
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "image/png" || len(body) == 0 {
		t.Errorf("thumbnail = %d %q %d bytes", resp.StatusCode, resp.Header.Get("Content-Type"), len(body))
	}

	waitFor(t, "diagnostic", func() bool {
		_, body := do(t, "GET", srv.URL+"/api/diagnostics?view=v1", "")
		var d []Diagnostic
		json.Unmarshal(body, &d)
		return len(d) == 1 && d[0].Kind == surface.AuthPrompt
	})

	resp, body = do(t, "POST", srv.URL+"/api/session/save", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"saved":1`) {
		t.Errorf("save session = %d %s", resp.StatusCode, body)
	}
}

func TestHTTP_Health(t *testing.T) {
	win, _ := testWindow(t, nil)
	srv := testServer(t, win)
	resp, body := do(t, "GET", srv.URL+"/health", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}
}
