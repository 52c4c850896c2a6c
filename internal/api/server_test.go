package api

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
	"github.com/bryanchriswhite/RenderWatch/internal/config"
	"github.com/bryanchriswhite/RenderWatch/internal/output"
	"github.com/bryanchriswhite/RenderWatch/internal/watch"
	"github.com/gorilla/websocket"
)

type fakeLoop struct {
	mu   sync.Mutex
	last *watch.Report
	subs []chan watch.Report
}

func (l *fakeLoop) Last() *watch.Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *fakeLoop) Subscribe() chan watch.Report {
	ch := make(chan watch.Report, 4)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}

func (l *fakeLoop) Unsubscribe(ch chan watch.Report) {}

func (l *fakeLoop) subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *fakeLoop) publish(rep watch.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &rep
	for _, ch := range l.subs {
		ch <- rep
	}
}

type countingResetter struct {
	mu    sync.Mutex
	count int
}

func (r *countingResetter) Request() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func newTestServer(t *testing.T, stream *output.MJPEGOutput) (*httptest.Server, *fakeLoop, *countingResetter) {
	t.Helper()
	loop := &fakeLoop{}
	resetter := &countingResetter{}
	srv := httptest.NewServer(NewServer(config.Defaults(), loop, resetter, stream).Handler())
	t.Cleanup(srv.Close)
	return srv, loop, resetter
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["version"] != Version {
		t.Errorf("body = %v", body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}
}

func TestStatus(t *testing.T) {
	srv, loop, _ := newTestServer(t, nil)

	get := func() StatusResponse {
		t.Helper()
		resp, err := http.Get(srv.URL + "/api/status")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var status StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatal(err)
		}
		return status
	}

	status := get()
	if status.Artifact != "rt.dll" || status.Mode != "library" || status.Policy != "advance" {
		t.Errorf("config summary = %+v", status)
	}
	if status.Last != nil {
		t.Error("last report present before first tick")
	}

	loop.publish(watch.Report{
		Signal:   artifact.Signal{ModTime: 5, Size: 7},
		Changed:  true,
		Rendered: true,
		Outcome:  &artifact.Outcome{Kind: artifact.Success, Elapsed: 1500 * time.Microsecond},
	})

	status = get()
	if status.Last == nil || status.Last.Outcome == nil {
		t.Fatalf("last = %+v", status.Last)
	}
	if status.Last.Signal != "5/7" || status.Last.Outcome.Kind != "success" || status.Last.Outcome.ElapsedMs != 1.5 {
		t.Errorf("last = %+v outcome = %+v", status.Last, status.Last.Outcome)
	}
}

func TestResetQueuesRequest(t *testing.T) {
	srv, _, resetter := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	resetter.mu.Lock()
	count := resetter.count
	resetter.mu.Unlock()
	if count != 1 {
		t.Errorf("reset requests = %d, want 1", count)
	}

	resp, err = http.Get(srv.URL + "/api/reset")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, resetter := newTestServer(t, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/reset", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/reset", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/status", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/health", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/nosuch", http.StatusNotFound},
		{http.MethodGet, "/nosuch", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	resetter.mu.Lock()
	defer resetter.mu.Unlock()
	if resetter.count != 0 {
		t.Errorf("reset requests = %d, want 0", resetter.count)
	}
}

func TestEventsStreamsOutcomes(t *testing.T) {
	srv, loop, _ := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for loop.subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// idle ticks are not forwarded
	loop.publish(watch.Report{Signal: artifact.Absent})
	loop.publish(watch.Report{
		Changed: true,
		Outcome: &artifact.Outcome{Kind: artifact.InvalidArtifact, Err: errors.New("bad elf")},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var view ReportView
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if view.Outcome == nil || view.Outcome.Kind != "invalid_artifact" || view.Outcome.Error != "bad elf" {
		t.Errorf("event = %+v", view)
	}
}

func TestStreamRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/snapshot.jpg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("snapshot without stream: status = %d, want 404", resp.StatusCode)
	}

	stream := output.NewMJPEGOutput(output.Config{})
	stream.Start()
	defer stream.Stop()
	srv2, _, _ := newTestServer(t, stream)

	resp, err = http.Get(srv2.URL + "/snapshot.jpg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	// route exists, no frame yet
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("snapshot before first frame: status = %d", resp.StatusCode)
	}

	if err := stream.WriteFrame(image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	resp, err = http.Get(srv2.URL + "/snapshot.jpg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("snapshot: status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv2.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("index: status = %d, type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
