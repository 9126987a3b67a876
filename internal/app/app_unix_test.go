//go:build unix

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/nfgenomeannotator/internal/nextflow"
	"github.com/stretchr/testify/require"
)

type e2eEnv struct {
	configPath string
	shared     string
	logRoot    string
	argsFile   string
	provisions *atomic.Int32
}

// newE2EEnv wires a fake dispatcher, a fake engine script and a filesystem
// log root into a launcher config file.
func newE2EEnv(t *testing.T, exitCode string) *e2eEnv {
	t.Helper()

	provisions := &atomic.Int32{}
	dispatcher := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/provision-storage" || r.Header.Get("Authorization") != "Latch-Execution-Token tok-e2e" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		provisions.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "pvc-e2e"})
	}))
	t.Cleanup(dispatcher.Close)

	tools := t.TempDir()
	argsFile := filepath.Join(tools, "args.txt")
	engine := writeFile(t, filepath.Join(tools, "nextflow"), `#!/bin/sh
echo "$@" > "`+argsFile+`"
echo "claim=$K8S_STORAGE_CLAIM_NAME nxf_home=$NXF_HOME" >> "`+argsFile+`"
echo "engine log" > .nextflow.log
exit `+exitCode+`
`)
	require.NoError(t, os.Chmod(engine, 0o755))

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "main.nf"), "workflow {}")
	writeFile(t, filepath.Join(src, ".nextflow", "history"), "old")

	shared := filepath.Join(t.TempDir(), "nf-workdir")
	logRoot := t.TempDir()
	configPath := writeFile(t, filepath.Join(t.TempDir(), "launcher.hcl"), `
launcher {
  dispatcher {
    url = "`+dispatcher.URL+`"
  }
  engine {
    binary = "`+engine+`"
  }
  mirror {
    source = "`+src+`"
    shared = "`+shared+`"
  }
  logs {
    root = "`+logRoot+`"
  }
}
`)

	return &e2eEnv{
		configPath: configPath,
		shared:     shared,
		logRoot:    logRoot,
		argsFile:   argsFile,
		provisions: provisions,
	}
}

func e2eGetenv(k string) string {
	switch k {
	case "FLYTE_INTERNAL_EXECUTION_ID":
		return "tok-e2e"
	case "FLYTE_INTERNAL_EXECUTION_NAME":
		return "exec-e2e"
	}
	return ""
}

func TestRun_EndToEnd(t *testing.T) {
	env := newE2EEnv(t, "0")
	paramsPath := writeFile(t, filepath.Join(t.TempDir(), "params.hcl"), `
assembly   = "a.fa"
outdir     = "out/"
npart_size = null
trinity    = true
`)
	cfg, err := NewConfig(Config{ConfigPath: env.configPath, ParamsPath: paramsPath})
	require.NoError(t, err)

	a, _, logs := SetupAppTest(t, cfg, Options{Getenv: e2eGetenv})
	require.NoError(t, a.Run(context.Background()), logs.String())
	require.Equal(t, int32(1), env.provisions.Load())

	recorded, err := os.ReadFile(env.argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "run "+filepath.Join(env.shared, "main.nf")+" -work-dir "+env.shared+" -profile docker -c latch.config --assembly a.fa --outdir out/"))
	require.NotContains(t, lines[0], "--npart_size")
	require.Contains(t, lines[0], "--trinity true")
	require.Equal(t, "claim=pvc-e2e nxf_home=/root/.nextflow", lines[1])

	require.NoDirExists(t, filepath.Join(env.shared, ".nextflow"))
	uploaded, err := os.ReadFile(filepath.Join(env.logRoot, "nf_nf_core_genomeannotator", "exec-e2e", "nextflow.log"))
	require.NoError(t, err)
	require.Equal(t, "engine log\n", string(uploaded))
}

func TestRun_EndToEndEngineFailure(t *testing.T) {
	env := newE2EEnv(t, "4")
	paramsPath := writeFile(t, filepath.Join(t.TempDir(), "params.hcl"), "assembly = \"a.fa\"\noutdir = \"out/\"\n")
	cfg, err := NewConfig(Config{ConfigPath: env.configPath, ParamsPath: paramsPath})
	require.NoError(t, err)

	a, _, _ := SetupAppTest(t, cfg, Options{Getenv: e2eGetenv})
	err = a.Run(context.Background())

	var exitErr *nextflow.ExitError
	require.True(t, errors.As(err, &exitErr), "expected engine exit error, got %v", err)
	require.Equal(t, 4, exitErr.Code)

	// The log is still published after a failed run.
	require.FileExists(t, filepath.Join(env.logRoot, "nf_nf_core_genomeannotator", "exec-e2e", "nextflow.log"))
}
