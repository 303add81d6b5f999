package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"autoarchitect/internal/entity"
	"autoarchitect/internal/repository/memory"
	"autoarchitect/internal/service"
	httptransport "autoarchitect/internal/transport/http"
)

// ---- fakes ----

type queueStub struct {
	enqueuedIDs []string
}

func (q *queueStub) Enqueue(ctx context.Context, jobID string) error {
	q.enqueuedIDs = append(q.enqueuedIDs, jobID)
	return nil
}

// ---- helpers ----

func newTestRouter(t *testing.T) (http.Handler, *service.JobService, *queueStub) {
	t.Helper()
	repo := memory.NewJobRepository()
	queue := &queueStub{}
	svc := service.NewJobService(repo, queue)
	h := httptransport.NewHandler(svc)
	origins := []string{"http://localhost:5173"}
	return httptransport.Routes(h, origins), svc, queue
}

func submit(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ---- tests ----

func TestHTTP_Analyze_202_AndEnqueued(t *testing.T) {
	router, svc, queue := newTestRouter(t)

	rr := submit(t, router, `{"repo_url":"https://github.com/acme/widgets"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d, body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response: %v, body=%s", err, rr.Body.String())
	}
	id, err := uuid.Parse(resp.JobID)
	if err != nil {
		t.Fatalf("job_id is not a uuid: %q", resp.JobID)
	}

	if len(queue.enqueuedIDs) != 1 || queue.enqueuedIDs[0] != id.String() {
		t.Fatalf("expected enqueue id=%s, got %#v", id.String(), queue.enqueuedIDs)
	}

	job, err := svc.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("job not stored: %v", err)
	}
	if job.Status != entity.StatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
}

func TestHTTP_Analyze_400_InvalidURL_NoJob(t *testing.T) {
	router, _, queue := newTestRouter(t)

	rr := submit(t, router, `{"repo_url":"not a url"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if len(queue.enqueuedIDs) != 0 {
		t.Fatalf("invalid submission was enqueued: %#v", queue.enqueuedIDs)
	}
}

func TestHTTP_Analyze_400_InvalidJSON(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := submit(t, router, `{"repo_url":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestHTTP_CORS_AllowsConfiguredOrigin(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// preflight from the configured frontend origin
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allow-origin for configured origin, got %q", got)
	}

	// an origin outside the allowlist gets no CORS grant
	req = httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin for unlisted origin: %q", got)
	}
}

func TestHTTP_GetJob_404_Unknown(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestHTTP_GetJob_400_MalformedID(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestHTTP_GetJob_ResultOnlyWhenCompleted(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	ctx := context.Background()

	rr := submit(t, router, `{"repo_url":"https://github.com/acme/widgets"}`)
	var created struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	id := uuid.MustParse(created.JobID)

	get := func() map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var got map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid json: %v, body=%s", err, rec.Body.String())
		}
		return got
	}

	got := get()
	if got["status"] != "queued" {
		t.Fatalf("expected queued, got %v", got["status"])
	}
	if _, ok := got["result"]; ok {
		t.Fatalf("result present before completion: %v", got)
	}

	if err := svc.Transition(ctx, id, entity.StatusProcessing, service.TransitionPayload{}); err != nil {
		t.Fatalf("processing: %v", err)
	}
	if err := svc.Transition(ctx, id, entity.StatusCompleted, service.TransitionPayload{
		Result: &entity.AnalysisResult{Summary: "the summary", Mermaid: "graph TD; A-->B;"},
	}); err != nil {
		t.Fatalf("completed: %v", err)
	}

	got = get()
	if got["status"] != "completed" {
		t.Fatalf("expected completed, got %v", got["status"])
	}
	result, ok := got["result"].(map[string]any)
	if !ok {
		t.Fatalf("result missing after completion: %v", got)
	}
	if result["mermaid"] != "graph TD; A-->B;" || result["summary"] != "the summary" {
		t.Fatalf("unexpected result payload: %v", result)
	}
	if _, ok := got["error"]; ok {
		t.Fatalf("error present on completed job: %v", got)
	}
}

func TestHTTP_GetJobResult_409_WhenNotCompleted(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	ctx := context.Background()

	rr := submit(t, router, `{"repo_url":"https://github.com/acme/widgets"}`)
	var created struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	id := uuid.MustParse(created.JobID)

	if err := svc.Transition(ctx, id, entity.StatusProcessing, service.TransitionPayload{}); err != nil {
		t.Fatalf("processing: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+id.String()+"/result", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHTTP_GetJobResult_200_WhenCompleted(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	ctx := context.Background()

	rr := submit(t, router, `{"repo_url":"https://github.com/acme/widgets"}`)
	var created struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	id := uuid.MustParse(created.JobID)

	if err := svc.Transition(ctx, id, entity.StatusProcessing, service.TransitionPayload{}); err != nil {
		t.Fatalf("processing: %v", err)
	}
	if err := svc.Transition(ctx, id, entity.StatusCompleted, service.TransitionPayload{
		Result: &entity.AnalysisResult{Summary: "the summary", Mermaid: "graph TD; A-->B;"},
	}); err != nil {
		t.Fatalf("completed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+id.String()+"/result", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rec.Code, rec.Body.String())
	}

	var result struct {
		Summary string `json:"summary"`
		Mermaid string `json:"mermaid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid json: %v, body=%s", err, rec.Body.String())
	}
	if result.Summary != "the summary" || result.Mermaid != "graph TD; A-->B;" {
		t.Fatalf("unexpected result: %#v", result)
	}
}
