package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vulndash/pkg/config"
	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/remote"
	"github.com/user/vulndash/pkg/server"
)

func dirServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	s := server.New(engine.NewStore(), server.WithSourceFactory(func(rc remote.Config) (remote.Source, error) {
		return newSource(cfg, rc)
	}))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postFiles(t *testing.T, url string, body map[string]any) (int, string) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url+"/api/ssh-files", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.String()
}

func TestDirSourceIgnoresRequestedPath(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "report.csv"), []byte(header+"\nhigh,XSS,d,a.js,1,r,main,c"), 0o644))

	elsewhere := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(elsewhere, "secret.txt"), []byte("TOP-SECRET"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(elsewhere, "other.csv"), []byte("x"), 0o644))

	cfg := config.Default()
	cfg.Server.Source = remote.KindDir
	cfg.Server.DataDir = dataDir
	srv := dirServer(t, cfg)

	conn := map[string]any{"host": "h", "username": "u", "privateKey": "k", "remotePath": elsewhere}

	status, body := postFiles(t, srv.URL, map[string]any{"action": "download", "filename": "secret.txt", "config": conn})
	assert.NotEqual(t, http.StatusOK, status)
	assert.NotContains(t, body, "TOP-SECRET")

	status, body = postFiles(t, srv.URL, map[string]any{"action": "list", "config": conn})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "report.csv")
	assert.NotContains(t, body, "other.csv")
}

func TestDirSourceRequiresDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Source = remote.KindDir

	assert.ErrorIs(t, checkSource(cfg), errNoDataDir)

	_, err := newSource(cfg, remote.Config{RemotePath: t.TempDir()})
	assert.ErrorIs(t, err, errNoDataDir)

	srv := dirServer(t, cfg)
	conn := map[string]any{"host": "h", "username": "u", "privateKey": "k", "remotePath": t.TempDir()}
	status, _ := postFiles(t, srv.URL, map[string]any{"action": "list", "config": conn})
	assert.Equal(t, http.StatusInternalServerError, status)
}
