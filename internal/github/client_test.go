package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeAPI is an httptest-backed GitHub API holding one issue's labels.
type fakeAPI struct {
	mu     sync.Mutex
	labels []string
	puts   int
}

func (f *fakeAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/o/r/issues/5":
			labels := make([]map[string]string, len(f.labels))
			for i, l := range f.labels {
				labels[i] = map[string]string{"name": l}
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"number": 5, "title": "t", "labels": labels,
			})
		case r.Method == http.MethodPut && r.URL.Path == "/repos/o/r/issues/5/labels":
			f.puts++
			var body struct {
				Labels []string `json:"labels"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.labels = body.Labels
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "[]")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestUpdateLabelsWithCheckSwaps(t *testing.T) {
	api := &fakeAPI{labels: []string{"soba:ready", "bug"}}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	client := NewClientWithBaseURL("tok", "o", "r", server.URL)
	ok, err := client.UpdateLabelsWithCheck(context.Background(), 5, "soba:ready", "soba:doing")
	if err != nil {
		t.Fatalf("UpdateLabelsWithCheck: %v", err)
	}
	if !ok {
		t.Fatal("want true for a clean swap")
	}
	want := []string{"bug", "soba:doing"}
	if len(api.labels) != 2 || api.labels[0] != want[0] || api.labels[1] != want[1] {
		t.Errorf("labels = %v, want %v", api.labels, want)
	}
}

func TestUpdateLabelsWithCheckMismatch(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
	}{
		{"from absent", []string{"soba:doing"}},
		{"to already present", []string{"soba:ready", "soba:doing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{labels: tt.labels}
			server := httptest.NewServer(api.handler())
			defer server.Close()

			client := NewClientWithBaseURL("tok", "o", "r", server.URL)
			ok, err := client.UpdateLabelsWithCheck(context.Background(), 5, "soba:ready", "soba:doing")
			if err != nil {
				t.Fatalf("UpdateLabelsWithCheck: %v", err)
			}
			if ok {
				t.Error("want false on mismatch")
			}
			if api.puts != 0 {
				t.Error("mismatch must not write labels")
			}
		})
	}
}

func TestCreateLabelTolerateExisting(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed"}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("tok", "o", "r", server.URL)
	if err := client.CreateLabel(context.Background(), "soba:todo", "e4e669", ""); err != nil {
		t.Fatalf("CreateLabel on 422: %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("422 was retried (%d calls)", calls)
	}
}

func TestListOpenIssuesFiltersPRsAndPaginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "1" {
			// Full page: one real issue repeated, plus an inline PR.
			items := make([]map[string]interface{}, 0, 100)
			for i := 1; i <= 99; i++ {
				items = append(items, map[string]interface{}{"number": i})
			}
			items = append(items, map[string]interface{}{
				"number": 100, "pull_request": map[string]string{"url": "x"},
			})
			_ = json.NewEncoder(w).Encode(items)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{{"number": 101}})
	}))
	defer server.Close()

	client := NewClientWithBaseURL("tok", "o", "r", server.URL)
	issues, err := client.ListOpenIssues(context.Background())
	if err != nil {
		t.Fatalf("ListOpenIssues: %v", err)
	}
	if len(issues) != 100 {
		t.Fatalf("got %d issues, want 100 (99 + 1 from page 2, PR filtered)", len(issues))
	}
	for _, issue := range issues {
		if issue.PullRequest != nil {
			t.Errorf("issue %d is a PR and should be filtered", issue.Number)
		}
	}
}

func TestMergePullRequestConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprint(w, `{"message": "Pull Request is not mergeable"}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("tok", "o", "r", server.URL)
	_, err := client.MergePullRequest(context.Background(), 9, "")
	var conflict *MergeConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want MergeConflictError", err)
	}
	if conflict.Number != 9 {
		t.Errorf("conflict.Number = %d, want 9", conflict.Number)
	}
}

func TestAuthHeaderSent(t *testing.T) {
	var auth, version string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		version = r.Header.Get("X-GitHub-Api-Version")
		fmt.Fprint(w, `{"number": 1}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("secret-token", "o", "r", server.URL)
	if _, err := client.GetIssue(context.Background(), 1); err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if version == "" {
		t.Error("API version header missing")
	}
}
