package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/dakotadriver/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	r, fs := testRunner(t)
	return NewServer(":0", r, fs)
}

// waitForJob polls until the job reaches a terminal state.
func waitForJob(t *testing.T, s *Server, id string) Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := s.jobManager.GetJob(id)
		if ok && job.State.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s did not finish in time", id)
	return Job{}
}

func createJob(t *testing.T, s *Server, body string) Job {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return job
}

func TestServer_CreateJob(t *testing.T) {
	s := newTestServer(t)

	job := createJob(t, s, quickStudy)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	// State should be pending or running (since worker starts immediately)
	if job.State != StatePending && job.State != StateRunning {
		t.Errorf("Expected pending or running state, got %s", job.State)
	}

	final := waitForJob(t, s, job.ID)
	if final.State != StateCompleted {
		t.Errorf("Expected completed, got %s (%s)", final.State, final.Error)
	}
}

func TestServer_CreateJobJSON(t *testing.T) {
	s := newTestServer(t)

	body := `{"model": "rosenbrock", "engine": {"kind": "mayfly", "seed": 1},
		"method": {"kind": "conmin", "max_function_evaluations": 40},
		"parameters": [{"name": "x1", "low": -2, "high": 2}, {"name": "x2", "low": -2, "high": 2}],
		"objectives": ["f"]}`
	job := createJob(t, s, body)

	final := waitForJob(t, s, job.ID)
	if final.State != StateCompleted || final.Evaluations != 40 {
		t.Errorf("Unexpected final job: %+v", final)
	}
}

func TestServer_CreateJobInvalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"Malformed", "{not yaml: ["},
		{"UnknownModel", "model: nope\nparameters: [{name: x}]\nobjectives: [f]\n"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			s.Handler().ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}

	if len(s.jobManager.ListJobs()) != 0 {
		t.Error("Invalid studies must not create jobs")
	}
}

func TestServer_ListJobs(t *testing.T) {
	s := newTestServer(t)

	s.jobManager.CreateJob(testStudy(t))
	s.jobManager.CreateJob(testStudy(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var jobs []Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s, quickStudy)
	waitForJob(t, s, job.ID)

	for _, path := range []string{"/api/v1/jobs/" + job.ID, "/api/v1/jobs/" + job.ID + "/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		s.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}

		var status map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if status["id"] != job.ID || status["state"] != string(StateCompleted) {
			t.Errorf("Unexpected status: %v", status)
		}
		if status["evaluations"].(float64) != 60 {
			t.Errorf("Expected 60 evaluations, got %v", status["evaluations"])
		}
		if _, ok := status["bestObjective"].(float64); !ok {
			t.Errorf("Expected a best objective, got %v", status["bestObjective"])
		}
	}
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/jobs/nonexistent",
		"/api/v1/jobs/nonexistent/trace",
		"/api/v1/jobs/nonexistent/deck",
		"/api/v1/jobs/nonexistent/stream",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		s.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
		}
	}

	job := s.jobManager.CreateJob(testStudy(t))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/best.png", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Unknown subpath: expected status 404, got %d", w.Code)
	}
}

func TestServer_GetTrace(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s, quickStudy)
	final := waitForJob(t, s, job.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/trace", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var entries []store.TraceEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(entries) != final.Evaluations {
		t.Errorf("Expected %d trace entries, got %d", final.Evaluations, len(entries))
	}
	if len(entries) > 0 && len(entries[0].CV) != 2 {
		t.Errorf("Expected two continuous variables, got %v", entries[0].CV)
	}
}

func TestServer_GetTraceBeforeRun(t *testing.T) {
	s := newTestServer(t)
	job := s.jobManager.CreateJob(testStudy(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/trace", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty trace, got %s", w.Body.String())
	}
}

func TestServer_GetDeck(t *testing.T) {
	s := newTestServer(t)
	job := s.jobManager.CreateJob(testStudy(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/deck", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "strategy\n") {
		t.Errorf("Deck should start with the strategy section:\n%s", body)
	}
	if !strings.Contains(body, "descriptors   'x1' 'x2'") {
		t.Errorf("Deck missing descriptors:\n%s", body)
	}
	if strings.Contains(body, "interface") {
		t.Errorf("Assembled deck should have no interface section:\n%s", body)
	}
}

func TestServer_CancelJob(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s, quickStudy)
	waitForJob(t, s, job.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("Cancelling a finished job: expected 409, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET cancel: expected 405, got %d", w.Code)
	}

	pending := s.jobManager.CreateJob(testStudy(t))
	cancelled := false
	s.jobManager.UpdateJob(pending.ID, func(j *Job) {
		j.State = StateRunning
		j.cancel = func() { cancelled = true }
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+pending.ID+"/cancel", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusAccepted || !cancelled {
		t.Errorf("Expected 202 and a cancelled context, got %d / %v", w.Code, cancelled)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}

func TestServer_StreamFinishedJob(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s, quickStudy)
	waitForJob(t, s, job.ID)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/jobs/"+job.ID+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var event ProgressEvent
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("Bad event: %v", err)
		}
		break
	}
	if event.JobID != job.ID || event.State != StateCompleted || event.Evaluations != 60 {
		t.Errorf("Unexpected event: %+v", event)
	}
}

func TestEventBroadcaster(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job-1")
	eb.Broadcast(ProgressEvent{JobID: "job-1", Evaluations: 3})
	eb.Broadcast(ProgressEvent{JobID: "job-2", Evaluations: 9})

	select {
	case ev := <-ch:
		if ev.Evaluations != 3 {
			t.Errorf("Expected 3 evaluations, got %d", ev.Evaluations)
		}
	default:
		t.Fatal("Expected an event")
	}

	// Late subscribers get the last event
	late := eb.Subscribe("job-2")
	select {
	case ev := <-late:
		if ev.Evaluations != 9 {
			t.Errorf("Expected replayed event, got %+v", ev)
		}
	default:
		t.Error("Late subscriber should receive the last event")
	}

	eb.Unsubscribe("job-1", ch)
	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after Unsubscribe")
	}

	eb.CleanupJob("job-2")
	if _, ok := <-late; ok {
		t.Error("Channel should be closed after CleanupJob")
	}
}
