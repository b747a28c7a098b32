package progress_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

type recordedRequest struct {
	method string
	path   string
	user   string
	body   progress.ToggleRequest
}

func newProgressServer(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, user: r.Header.Get(progress.UserHeader)}
		if r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&rec.body)
		}
		mu.Lock()
		reqs = append(reqs, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"topics":["arrays"],"sections":{"arrays":["intro"]},"percent":10}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest{}, reqs...)
	}
}

func TestHTTPRemote_Fetch(t *testing.T) {
	srv, requests := newProgressServer(t, http.StatusOK)
	r := progress.NewHTTPRemote(srv.URL+"/api/learn", "u1")
	defer r.Close()

	p, err := r.Fetch(context.Background(), "dsa")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !p.Topics.Has("arrays") || !p.Sections["arrays"].Has("intro") {
		t.Errorf("Fetch() = %+v", p)
	}

	reqs := requests()
	if len(reqs) != 1 || reqs[0].path != "/api/learn/progress/dsa" || reqs[0].user != "u1" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestHTTPRemote_Apply(t *testing.T) {
	srv, requests := newProgressServer(t, http.StatusOK)
	r := progress.NewHTTPRemote(srv.URL, "u1")
	defer r.Close()
	ctx := context.Background()

	if err := r.Apply(ctx, progress.Op{Kind: progress.OpTopic, Category: "dsa", Topic: "arrays", Completed: false}); err != nil {
		t.Fatalf("Apply(topic) error = %v", err)
	}
	if err := r.Apply(ctx, progress.Op{Kind: progress.OpSection, Category: "dsa", Topic: "arrays", Section: "intro", Completed: true, Total: 3}); err != nil {
		t.Fatalf("Apply(section) error = %v", err)
	}

	reqs := requests()
	if len(reqs) != 2 {
		t.Fatalf("len(requests) = %d, want 2", len(reqs))
	}
	if reqs[0].path != "/progress/dsa/topics/arrays/toggle" {
		t.Errorf("topic path = %q", reqs[0].path)
	}
	if reqs[0].body.Completed == nil || *reqs[0].body.Completed {
		t.Errorf("topic body should carry completed=false, got %+v", reqs[0].body)
	}
	if reqs[1].path != "/progress/dsa/topics/arrays/sections/intro/toggle" {
		t.Errorf("section path = %q", reqs[1].path)
	}
	if reqs[1].body.Completed == nil || !*reqs[1].body.Completed || reqs[1].body.Total != 3 {
		t.Errorf("section body = %+v", reqs[1].body)
	}
}

func TestHTTPRemote_StatusError(t *testing.T) {
	srv, _ := newProgressServer(t, http.StatusBadRequest)
	r := progress.NewHTTPRemote(srv.URL, "u1")
	defer r.Close()

	err := r.Apply(context.Background(), progress.Op{Kind: progress.OpTopic, Category: "dsa", Topic: "arrays"})
	var se *progress.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("Apply() error = %v, want StatusError 400", err)
	}
	if progress.IsRetryable(err) {
		t.Error("400 should not be retryable")
	}
}
