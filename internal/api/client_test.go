package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/spacecombat/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000/", "secret123")

	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret123", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, New(server.URL, "").Healthcheck(context.Background()))
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck(context.Background())
	assert.ErrorContains(t, err, "status 503")
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, "").Healthcheck(context.Background()))
}

func writeReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "battle_of_sol.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("report-bytes"), 0o644))
	return path
}

func TestUpload_Success(t *testing.T) {
	received := map[string]string{}
	var fileContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/battles/add", r.URL.Path)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, key := range []string{"secret", "filename", "systemName", "battleName", "battleDuration", "rounds", "victor", "tag"} {
			received[key] = r.FormValue(key)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		fileContent = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := writeReport(t)
	err := New(server.URL, "s3cret").Upload(context.Background(), path, core.UploadMetadata{
		SystemName: "Sol",
		BattleName: "Battle of Sol",
		Duration:   1.5,
		Rounds:     12,
		Victor:     "Alkari",
		Tag:        "campaign",
	})
	require.NoError(t, err)

	assert.Equal(t, "s3cret", received["secret"])
	assert.Equal(t, "battle_of_sol.json.gz", received["filename"])
	assert.Equal(t, "Sol", received["systemName"])
	assert.Equal(t, "Battle of Sol", received["battleName"])
	assert.Equal(t, "1.500", received["battleDuration"])
	assert.Equal(t, "12", received["rounds"])
	assert.Equal(t, "Alkari", received["victor"])
	assert.Equal(t, "campaign", received["tag"])
	assert.Equal(t, "report-bytes", fileContent)
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "").Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	assert.ErrorContains(t, err, "failed to open file")
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(server.URL, "").Upload(context.Background(), writeReport(t), core.UploadMetadata{})
	assert.ErrorContains(t, err, "status 500")
}

type fakeUploadable struct {
	path string
	meta core.UploadMetadata
}

func (f fakeUploadable) GetExportedFilePath() string            { return f.path }
func (f fakeUploadable) GetExportMetadata() core.UploadMetadata { return f.meta }

func TestUploadExport(t *testing.T) {
	var battleName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		battleName = r.FormValue("battleName")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "")
	require.NoError(t, c.UploadExport(context.Background(), fakeUploadable{
		path: writeReport(t),
		meta: core.UploadMetadata{BattleName: "Battle of Sol"},
	}))
	assert.Equal(t, "Battle of Sol", battleName)

	assert.ErrorIs(t, c.UploadExport(context.Background(), fakeUploadable{}), ErrNothingExported)
}
