package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csv-profiler/backend/internal/analysis"
	"github.com/csv-profiler/backend/internal/config"
	"github.com/csv-profiler/backend/internal/models"
	"github.com/csv-profiler/backend/internal/storage"
	"github.com/csv-profiler/backend/internal/testutil"
)

const testCSV = "name,age\nAlice,30\nBob,25\nCara,NA\n"

type testServer struct {
	echo    *echo.Echo
	manager *analysis.Manager
	store   storage.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			UploadsDir:    filepath.Join(dir, "uploads"),
			OutputsDir:    filepath.Join(dir, "outputs"),
			TempDir:       filepath.Join(dir, "temp"),
			MaxUploadSize: "16M",
		},
		Processing: config.ProcessingConfig{MaxConcurrentAnalyses: 4},
		Pipeline:   config.DefaultPipeline(),
	}
	require.NoError(t, cfg.EnsureDirectories())

	store, err := storage.NewLocalStore(cfg.Storage.UploadsDir)
	require.NoError(t, err)
	manager := analysis.NewManager(store, cfg)

	handlers := NewHandlers(&Dependencies{
		Store:           store,
		AnalysisMgr:     manager,
		MaxUploadSize:   1024,
		DefaultPageSize: 100,
		Version:         "test",
	})

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, handlers)

	return &testServer{echo: e, manager: manager, store: store}
}

func (ts *testServer) request(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func (ts *testServer) uploadFile(t *testing.T, filename, content string) models.FileInfo {
	t.Helper()
	body, ct := multipartBody(t, filename, content)
	rec := ts.request(t, http.MethodPost, "/api/files/upload", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return info
}

func (ts *testServer) runAnalysis(t *testing.T, fileID string) models.Analysis {
	t.Helper()
	payload := bytes.NewBufferString(fmt.Sprintf(`{"fileId":%q}`, fileID))
	rec := ts.request(t, http.MethodPost, "/api/analyses", payload, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var a models.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		rec := ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/status", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
		if a.Status == models.AnalysisStatusComplete || a.Status == models.AnalysisStatusError {
			return a
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("analysis did not finish in time")
	return a
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
	assert.Contains(t, rec.Body.String(), `"analyses":0`)
	assert.Contains(t, rec.Body.String(), `"uptime_seconds"`)
}

func TestUploadFile(t *testing.T) {
	ts := newTestServer(t)

	info := ts.uploadFile(t, "people.csv", testCSV)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "people.csv", info.Name)
	assert.Equal(t, int64(len(testCSV)), info.Size)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartBody(t, "notes.txt", "hello")
	rec := ts.request(t, http.MethodPost, "/api/files/upload", body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_FILE_TYPE")
}

func TestUploadRejectsOversize(t *testing.T) {
	ts := newTestServer(t)

	// The test server caps uploads at 1024 bytes.
	body, ct := multipartBody(t, "big.csv", strings.Repeat("x", 2048))
	rec := ts.request(t, http.MethodPost, "/api/files/upload", body, ct)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE_TOO_LARGE")
}

func TestUploadRejectsMissingFile(t *testing.T) {
	ts := newTestServer(t)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.Close())
	rec := ts.request(t, http.MethodPost, "/api/files/upload", body, mw.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndDeleteFile(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadFile(t, "people.csv", testCSV)

	rec := ts.request(t, http.MethodGet, "/api/files/"+info.ID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.request(t, http.MethodDelete, "/api/files/"+info.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/files/"+info.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRecentFiles(t *testing.T) {
	ts := newTestServer(t)
	ts.uploadFile(t, "a.csv", testCSV)
	ts.uploadFile(t, "b.csv", testCSV)

	rec := ts.request(t, http.MethodGet, "/api/files/recent", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var files []models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 2)
}

func TestStartAnalysisUnknownFile(t *testing.T) {
	ts := newTestServer(t)

	payload := bytes.NewBufferString(`{"fileId":"nope"}`)
	rec := ts.request(t, http.MethodPost, "/api/analyses", payload, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartAnalysisMissingFileID(t *testing.T) {
	ts := newTestServer(t)

	payload := bytes.NewBufferString(`{}`)
	rec := ts.request(t, http.MethodPost, "/api/analyses", payload, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestAnalysisLifecycle(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadFile(t, "people.csv", testCSV)
	a := ts.runAnalysis(t, info.ID)

	require.Equal(t, models.AnalysisStatusComplete, a.Status)
	assert.Equal(t, 3, a.RowCount)
	assert.Equal(t, 2, a.ColumnCount)
	assert.NotEmpty(t, a.Artifacts)
	assert.NotEmpty(t, a.BundleName)

	// Summary
	rec := ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/summary", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dataset"`)

	// Artifact listing
	rec = ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/artifacts", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cleaned_data.csv")
	assert.Contains(t, rec.Body.String(), "summary_report.txt")

	// Artifact download
	rec = ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/artifacts/cleaned_data.csv", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "name,age")

	// Bundle download
	rec = ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/bundle", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), a.BundleName)

	// Keepalive
	rec = ts.request(t, http.MethodPost, "/api/analyses/"+a.ID+"/keepalive", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAnalysisStatusNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/analyses/missing/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryConflictWhileRunning(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadFile(t, "people.csv", testCSV)

	payload := bytes.NewBufferString(fmt.Sprintf(`{"fileId":%q}`, info.ID))
	rec := ts.request(t, http.MethodPost, "/api/analyses", payload, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var a models.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))

	rec = ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/summary", nil, "")
	if rec.Code != http.StatusOK {
		// Pipeline may still be running; a pending summary is a conflict.
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "CONFLICT")
	}
}

func TestMalformedCSVSurfacesAs422(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadFile(t, "empty.csv", "   \n")
	a := ts.runAnalysis(t, info.ID)

	require.Equal(t, models.AnalysisStatusError, a.Status)

	rec := ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/summary", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "MALFORMED_CSV")
}

func TestAllMissingCSVSurfacesAs422(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadFile(t, "blank.csv", "a,b\nNA,NA\nNA,NA\n")
	a := ts.runAnalysis(t, info.ID)

	require.Equal(t, models.AnalysisStatusError, a.Status)

	rec := ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/summary", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "MALFORMED_CSV")
}

func TestSummaryWithConstantColumn(t *testing.T) {
	ts := newTestServer(t)
	csv := "flat,score\n5,1\n5,2\n5,3\n5,4\n5,5\n"
	info := ts.uploadFile(t, "flat.csv", csv)
	a := ts.runAnalysis(t, info.ID)
	require.Equal(t, models.AnalysisStatusComplete, a.Status)

	rec := ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/summary", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, "constant column must not break summary encoding")
	assert.Contains(t, rec.Body.String(), `"flat"`)
	assert.NotContains(t, rec.Body.String(), "NaN")
}

func TestDownloadArtifactRejectsTraversal(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadFile(t, "people.csv", testCSV)
	a := ts.runAnalysis(t, info.ID)
	require.Equal(t, models.AnalysisStatusComplete, a.Status)

	handler := NewAnalysisHandler(ts.manager, 100).(*AnalysisHandlerImpl)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := ts.echo.NewContext(req, rec)
	c.SetParamNames("id", "*")
	c.SetParamValues(a.ID, "../../etc/passwd")

	err := handler.HandleDownloadArtifact(c)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestRowsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadFile(t, "people.csv", testCSV)
	a := ts.runAnalysis(t, info.ID)
	require.Equal(t, models.AnalysisStatusComplete, a.Status)

	rec := ts.request(t, http.MethodGet, "/api/analyses/"+a.ID+"/rows?page=1&pageSize=2", nil, "")
	if rec.Code == http.StatusNotFound {
		t.Skip("preview store unavailable in this environment")
	}
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Columns  []string   `json:"columns"`
		Rows     [][]string `json:"rows"`
		Total    int        `json:"total"`
		Page     int        `json:"page"`
		PageSize int        `json:"pageSize"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"name", "age"}, resp.Columns)
	assert.Len(t, resp.Rows, 2)
	assert.Equal(t, 3, resp.Total)
}

func TestUploadHandlerWithMockStore(t *testing.T) {
	mock := testutil.NewMockStorage()
	handler := NewUploadHandler(mock, 1024)

	e := echo.New()
	body, ct := multipartBody(t, "people.csv", testCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.HandleUploadFile(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, mock.GetFileCount())

	var info models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	data, err := mock.GetFileData(info.ID)
	require.NoError(t, err)
	assert.Equal(t, testCSV, string(data))
}
