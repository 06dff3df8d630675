package routes

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vlmax-platform/internal/config"
	"vlmax-platform/models"
	"vlmax-platform/services"
	"vlmax-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	public := t.TempDir()
	return &config.Config{
		PublicDir:     public,
		UploadsDir:    filepath.Join(public, "uploads"),
		PreprocessDir: filepath.Join(public, "preprocess_results"),
		ResultsDir:    filepath.Join(public, "results"),
		IndexPath:     filepath.Join(public, "results.json"),
		MergedPath:    filepath.Join(public, "results.html"),
		MaxFileSize:   1 << 20,
	}
}

type recordingProcessor struct {
	store *services.ArtifactStore
	paths []string
}

func (p *recordingProcessor) Process(_ context.Context, path string) (*services.RunContext, error) {
	p.paths = append(p.paths, path)
	run := services.NewRunContext(utils.FileStem(path))
	if err := run.Record(models.NewArtifactKey(1, 1), models.FieldMain, "/preprocess_results/x.png"); err != nil {
		return nil, err
	}
	return run, p.store.WriteIndex(run)
}

type recordingEnqueuer struct {
	paths []string
}

func (e *recordingEnqueuer) EnqueueDocument(_ context.Context, path string) (string, error) {
	e.paths = append(e.paths, path)
	return "task-1", nil
}

func newDocumentRouter(cfg *config.Config, processor DocumentProcessor, enqueuer DocumentEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := services.NewArtifactStore(cfg)
	SetupDocumentRoutes(router, cfg, processor, enqueuer, store, services.NewCleaner(cfg))
	return router
}

func uploadRequest(t *testing.T, names ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range names {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		part.Write([]byte("%PDF-1.4 test"))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadProcessesInline(t *testing.T) {
	cfg := testConfig(t)
	processor := &recordingProcessor{store: services.NewArtifactStore(cfg)}
	router := newDocumentRouter(cfg, processor, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "report.pdf"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), "page_1_table_1")

	require.Len(t, processor.paths, 1)
	assert.True(t, strings.HasSuffix(processor.paths[0], "-report.pdf"))
	assert.FileExists(t, processor.paths[0])
}

func TestUploadEnqueuesWhenQueueEnabled(t *testing.T) {
	cfg := testConfig(t)
	enqueuer := &recordingEnqueuer{}
	router := newDocumentRouter(cfg, &recordingProcessor{}, enqueuer)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "a.pdf", "b.png"))

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, enqueuer.paths, 2)
	assert.Contains(t, w.Body.String(), "task-1")
}

func TestUploadWithoutFiles(t *testing.T) {
	router := newDocumentRouter(testConfig(t), &recordingProcessor{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCleanRoute(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.MergedPath, []byte("<table></table>"), 0o644))
	router := newDocumentRouter(cfg, &recordingProcessor{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/clean", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Success"`)
	assert.NoFileExists(t, cfg.MergedPath)
}

func TestResultsRoutes(t *testing.T) {
	cfg := testConfig(t)
	router := newDocumentRouter(cfg, &recordingProcessor{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	html := strings.Repeat("<table><tr><td>apple</td></tr></table>", 50)
	require.NoError(t, os.WriteFile(cfg.MergedPath, []byte(html), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/results/html", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := utils.DecompressData(w.Body.Bytes(), utils.CompressionBrotli)
	require.NoError(t, err)
	assert.Equal(t, html, string(plain))
}

func TestStaticRoutes(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.ResultsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ResultsDir, "abc.html"), []byte("<table></table>"), 0o644))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupStaticRoutes(router, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/results/abc.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<table></table>", w.Body.String())
}
