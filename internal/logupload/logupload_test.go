package logupload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecutionName(t *testing.T) {
	t.Parallel()

	env := map[string]string{"EXEC": " ancient-falcon-42 ", "BLANK": "  "}
	getenv := func(k string) string { return env[k] }

	name, err := ExecutionName(getenv, "EXEC")
	require.NoError(t, err)
	require.Equal(t, "ancient-falcon-42", name)

	_, err = ExecutionName(getenv, "BLANK")
	require.ErrorIs(t, err, ErrNoExecutionName)

	_, err = ExecutionName(getenv, "MISSING")
	require.ErrorIs(t, err, ErrNoExecutionName)
}

func TestRemotePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		root string
		want string
	}{
		{name: "filesystem", root: "/your_log_dir", want: "/your_log_dir/nf_pipe/exec-1/nextflow.log"},
		{name: "filesystem trailing slash", root: "/logs/", want: "/logs/nf_pipe/exec-1/nextflow.log"},
		{name: "http", root: "http://logs.local:8080/base/", want: "http://logs.local:8080/base/nf_pipe/exec-1/nextflow.log"},
		{name: "https without path", root: "https://logs.example.com", want: "https://logs.example.com/nf_pipe/exec-1/nextflow.log"},
		{name: "file url", root: "file:///var/logs", want: "file:///var/logs/nf_pipe/exec-1/nextflow.log"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := RemotePath(tc.root, "nf_pipe", "exec-1")
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := RemotePath("/logs", "nf_pipe", "")
	require.Error(t, err)
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".nextflow.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploader_FilesystemDestination(t *testing.T) {
	t.Parallel()

	local := writeLog(t, "hello log\n")
	u := New(0)
	defer u.Close()

	dst := filepath.Join(t.TempDir(), "pipe", "exec", FileName)
	require.NoError(t, u.Upload(context.Background(), local, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello log\n", string(got))
}

func TestUploader_FileURLDestination(t *testing.T) {
	t.Parallel()

	local := writeLog(t, "via file url")
	u := New(0)
	defer u.Close()

	root := t.TempDir()
	remote, err := RemotePath("file://"+filepath.ToSlash(root), "pipe", "exec")
	require.NoError(t, err)
	require.NoError(t, u.Upload(context.Background(), local, remote))

	got, err := os.ReadFile(filepath.Join(root, "pipe", "exec", FileName))
	require.NoError(t, err)
	require.Equal(t, "via file url", string(got))
}

func TestUploader_HTTPPut(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	local := writeLog(t, "N E X T F L O W\n")
	u := New(0)
	defer u.Close()

	remote, err := RemotePath(srv.URL+"/logs", "pipe", "exec")
	require.NoError(t, err)
	require.NoError(t, u.Upload(context.Background(), local, remote))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/logs/pipe/exec/nextflow.log", path)
	require.Equal(t, "N E X T F L O W\n", body)
}

func TestUploader_HTTPErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	local := writeLog(t, "x")
	u := New(0)
	defer u.Close()

	err := u.Upload(context.Background(), local, srv.URL+"/nextflow.log")
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestUploader_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	local := writeLog(t, "x")
	u := New(0)
	defer u.Close()

	err := u.Upload(context.Background(), local, "latch:///logs/nextflow.log")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported upload scheme")
}

type recordingBackend struct {
	calls []string
	err   error
}

func (b *recordingBackend) Upload(_ context.Context, local, remote string) error {
	b.calls = append(b.calls, local+" -> "+remote)
	return b.err
}

func newPublisher(b Backend, env map[string]string) *Publisher {
	return &Publisher{
		Uploader:         b,
		Root:             "/your_log_dir",
		PipelineName:     "nf_nf_core_genomeannotator",
		ExecutionNameEnv: "FLYTE_INTERNAL_EXECUTION_NAME",
		Getenv:           func(k string) string { return env[k] },
	}
}

func TestPublisher_UploadsExistingLog(t *testing.T) {
	t.Parallel()

	local := writeLog(t, "log")
	backend := &recordingBackend{}
	p := newPublisher(backend, map[string]string{"FLYTE_INTERNAL_EXECUTION_NAME": "exec-7"})

	require.True(t, p.Publish(context.Background(), local))
	require.Equal(t, []string{local + " -> /your_log_dir/nf_nf_core_genomeannotator/exec-7/nextflow.log"}, backend.calls)
}

func TestPublisher_MissingLogIsNotUploaded(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{}
	p := newPublisher(backend, map[string]string{"FLYTE_INTERNAL_EXECUTION_NAME": "exec-7"})

	require.False(t, p.Publish(context.Background(), filepath.Join(t.TempDir(), ".nextflow.log")))
	require.Empty(t, backend.calls)
}

func TestPublisher_FailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	local := writeLog(t, "log")

	failing := &recordingBackend{err: errors.New("bucket unavailable")}
	require.True(t, newPublisher(failing, map[string]string{"FLYTE_INTERNAL_EXECUTION_NAME": "exec-7"}).Publish(context.Background(), local))
	require.Len(t, failing.calls, 1)

	unnamed := &recordingBackend{}
	require.True(t, newPublisher(unnamed, nil).Publish(context.Background(), local))
	require.Empty(t, unnamed.calls)
}
