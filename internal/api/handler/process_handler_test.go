package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-archive-merger/internal/config"
	"go-archive-merger/internal/model"
	"go-archive-merger/internal/pipeline"
	"go-archive-merger/pkg/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, svc Service) *router.Router {
	t.Helper()
	h := New(svc, 1<<20, testLogger())
	r := router.New(testLogger())
	r.POST("/api/process", h.ProcessArchive)
	r.GET("/api/jobs", h.ListJobs)
	r.GET("/api/status/*", h.GetStatus)
	r.GET("/api/download/*", h.DownloadResult)
	return r
}

func newOrchestrator(t *testing.T) *pipeline.Orchestrator {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Port = "5000"
	cfg.UploadDir = filepath.Join(dir, "uploads")
	cfg.OutputDir = filepath.Join(dir, "processed_files")
	cfg.DBPath = ""
	o, err := pipeline.NewOrchestrator(cfg, pipeline.NewTracker(), nil, testLogger())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	t.Cleanup(func() { o.Shutdown(context.Background()) })
	return o
}

func buildZip(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, files[name])
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("other", "value")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestProcessArchiveValidation(t *testing.T) {
	srv := newServer(t, newOrchestrator(t))

	tests := []struct {
		name        string
		req         *http.Request
		wantMessage string
	}{
		{name: "no file field", req: uploadRequest(t, "", "", nil), wantMessage: "No file provided"},
		{name: "wrong field", req: uploadRequest(t, "upload", "a.zip", []byte("x")), wantMessage: "No file provided"},
		{name: "not multipart", req: httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader("{}")), wantMessage: "No file provided"},
		{name: "wrong extension", req: uploadRequest(t, "file", "data.csv", []byte("a,b")), wantMessage: "Only ZIP files are supported"},
		{name: "upper case extension", req: uploadRequest(t, "file", "DATA.ZIP", []byte("x")), wantMessage: "Only ZIP files are supported"},
		{name: "empty file input", req: uploadRequest(t, "file", "", nil), wantMessage: "No file selected"},
		{name: "zero byte archive", req: uploadRequest(t, "file", "empty.zip", []byte{}), wantMessage: "Uploaded file is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body["status"] != "error" || body["message"] != tt.wantMessage {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestProcessStatusDownload(t *testing.T) {
	srv := newServer(t, newOrchestrator(t))

	archive := buildZip(t, map[string]string{
		"README.md": "docs",
		"1.csv":     "match_id,batter,runs_off_bat\n1,Kohli,4\n",
		"2.csv":     "match_id,batter,runs_off_bat,wides\n2,Rohit,,1\n",
	}, "README.md", "1.csv", "2.csv")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "file", "ipl.zip", archive))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "processing" {
		t.Fatalf("unexpected body %v", body)
	}
	id, _ := body["process_id"].(string)
	if id == "" {
		t.Fatalf("missing process_id in %v", body)
	}

	var status map[string]interface{}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		status = decode(t, rec)
		if status["status"] == "completed" || status["status"] == "error" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status["status"] != "completed" || status["progress"] != float64(100) {
		t.Fatalf("unexpected final status %v", status)
	}
	if status["current_file"] != float64(2) || status["total_files"] != float64(2) {
		t.Fatalf("unexpected counters %v", status)
	}
	if msgs, ok := status["messages"].([]interface{}); !ok || len(msgs) == 0 {
		t.Fatalf("expected messages, got %v", status["messages"])
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/download/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	wantDisposition := fmt.Sprintf("attachment; filename=\"processed_data_%s.txt\"", id)
	if got := rec.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("unexpected Content-Type %q", got)
	}
	want := "match_id|batter|runs_off_bat|wides\n1|Kohli|4|0\n2|Rohit|0|1\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected download:\n%s\nwant:\n%s", rec.Body.String(), want)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("jobs: expected 200, got %d", rec.Code)
	}
	var jobs []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0]["process_id"] != id || jobs[0]["archive_name"] != "ipl.zip" {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	if _, ok := jobs[0]["messages"]; ok {
		t.Fatal("job list must not carry messages")
	}
}

func TestUnknownProcess(t *testing.T) {
	srv := newServer(t, newOrchestrator(t))

	tests := []struct {
		path        string
		wantMessage string
	}{
		{path: "/api/status/does-not-exist", wantMessage: "Process not found"},
		{path: "/api/download/does-not-exist", wantMessage: "File not found"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", tt.path, rec.Code)
		}
		if body := decode(t, rec); body["status"] != "error" || body["message"] != tt.wantMessage {
			t.Fatalf("%s: unexpected body %v", tt.path, body)
		}
	}
}

// stubService answers from fixed values.
type stubService struct {
	submitErr error
	job       model.Job
	statusErr error
	result    string
	resultErr error
}

func (s *stubService) Submit(context.Context, string, io.Reader) (string, error) {
	return "stub-id", s.submitErr
}
func (s *stubService) Status(string) (model.Job, error) { return s.job, s.statusErr }
func (s *stubService) Result(string) (string, error)    { return s.result, s.resultErr }
func (s *stubService) Jobs() []model.Job                { return []model.Job{s.job} }
func (s *stubService) DownloadName(id string) string    { return "processed_data_" + id + ".txt" }

func TestProcessArchiveSubmissionFailure(t *testing.T) {
	srv := newServer(t, &stubService{submitErr: fmt.Errorf("%w: worker queue is full", model.ErrSubmission)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "file", "a.zip", []byte("PK")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "error" || !strings.Contains(body["message"].(string), "queue is full") {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestProcessArchiveInvalidUpload(t *testing.T) {
	srv := newServer(t, &stubService{submitErr: fmt.Errorf("%w: %w: upload exceeds 16 bytes", model.ErrSubmission, model.ErrInvalidUpload)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "file", "a.zip", []byte("PK")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "error" || !strings.Contains(body["message"].(string), "exceeds") {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDownloadNotReady(t *testing.T) {
	srv := newServer(t, &stubService{resultErr: fmt.Errorf("%w: job is processing", model.ErrResultNotReady)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/download/stub-id", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDownloadMissingOutput(t *testing.T) {
	srv := newServer(t, &stubService{result: filepath.Join(t.TempDir(), "gone.txt")})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/download/stub-id", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStatusIncludesError(t *testing.T) {
	srv := newServer(t, &stubService{job: model.Job{
		ID:       "stub-id",
		Status:   model.StatusError,
		Progress: 40,
		Error:    "cannot write output: disk full",
		Messages: []string{"[10:00:00] Error: cannot write output: disk full"},
	}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/stub-id", nil))
	body := decode(t, rec)
	if body["status"] != "error" || body["error"] != "cannot write output: disk full" || body["progress"] != float64(40) {
		t.Fatalf("unexpected body %v", body)
	}
}
