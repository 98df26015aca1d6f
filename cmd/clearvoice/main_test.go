package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clearvoice/internal/blob"
	"clearvoice/internal/tensor"
	"clearvoice/internal/testsupport"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
staging_dir = %q
log_dir = %q
`, filepath.Join(base, "staging"), filepath.Join(base, "logs"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected an error for an existing config file")
	}
}

func TestRunsListEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestPreprocessRequiresOutFlag(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCLI(t, "--config", cfgPath, "preprocess")
	if err == nil || !strings.Contains(err.Error(), "out") {
		t.Fatalf("error = %v, want missing --out", err)
	}
}

func TestTrainRequiresValidationBlob(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCLI(t, "--config", cfgPath, "train",
		"--train-blob", "train.npz",
		"--normalization-cache", "norm.msgpack",
		"--model-cache-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "validation-blob") {
		t.Fatalf("error = %v, want missing --validation-blob", err)
	}
}

// writeDSPStub writes a shell script standing in for the clearvoice-dsp
// helper. It answers video-tensor and spectrogram calls by copying
// pre-generated fixture files into the requested output locations.
func writeDSPStub(t *testing.T, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}

	mustWriteNPY := func(path string, shape ...int) {
		ts, err := tensor.New(shape...)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := tensor.WriteNPYFile(path, ts); err != nil {
			t.Fatalf("WriteNPYFile: %v", err)
		}
	}
	videoFixture := filepath.Join(dir, "video.npy")
	specFixture := filepath.Join(dir, "spec.npy")
	metaFixture := filepath.Join(dir, "meta.json")
	mustWriteNPY(videoFixture, 15, 2, 2)
	mustWriteNPY(specFixture, 15, 3, 4)
	if err := os.WriteFile(metaFixture, []byte(`{"frame_rate": 25}`), 0o644); err != nil {
		t.Fatalf("write meta fixture: %v", err)
	}

	script := fmt.Sprintf(`#!/bin/sh
cmd="$1"; shift
out=""; meta=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    --out) out="$2"; shift 2 ;;
    --meta) meta="$2"; shift 2 ;;
    *) shift ;;
  esac
done
case "$cmd" in
  video-tensor) cp %q "$out" && cp %q "$meta" ;;
  spectrogram) cp %q "$out" ;;
  *) exit 1 ;;
esac
`, videoFixture, metaFixture, specFixture)

	stubPath := filepath.Join(dir, "dsp-stub")
	if err := os.WriteFile(stubPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write dsp stub: %v", err)
	}
	return stubPath
}

func TestPreprocessExpandsTildeInOutPath(t *testing.T) {
	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)

	datasetRoot := filepath.Join(base, "train")
	noiseDir := filepath.Join(base, "noise")
	testsupport.WriteSpeaker(t, datasetRoot, "s1", "a")
	testsupport.WriteNoise(t, noiseDir, "n1")

	stub := writeDSPStub(t, filepath.Join(base, "stub"))

	cfgPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
staging_dir = %q
log_dir = %q

[datasets]
train_dir = %q
noise_dirs = [%q]

[tools]
dsp_binary = %q
`, filepath.Join(base, "staging"), filepath.Join(base, "logs"), datasetRoot, noiseDir, stub)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "preprocess", "--out", "~/blobs/train.npz")
	if err != nil {
		t.Fatalf("preprocess: %v (output %q)", err, out)
	}

	blobPath := filepath.Join(home, "blobs", "train.npz")
	requireContains(t, out, blobPath)
	table, err := blob.Load(blobPath)
	if err != nil {
		t.Fatalf("Load blob under expanded home: %v", err)
	}
	if table.Len() != 15 {
		t.Errorf("blob holds %d slices, want 15", table.Len())
	}
	requireContains(t, out, "Wrote 15 slices")
}

func TestDepsReportsAvailability(t *testing.T) {
	base := t.TempDir()
	stub := filepath.Join(base, "dsp-stub")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	cfgPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
staging_dir = %q
log_dir = %q

[tools]
dsp_binary = %q
network_binary = "definitely-not-installed"
`, filepath.Join(base, "staging"), filepath.Join(base, "logs"), stub)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "deps")
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("error = %v, want one missing binary", err)
	}
	requireContains(t, out, "ok")
	requireContains(t, out, "missing")
}

func TestRunsShowRejectsBadID(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCLI(t, "--config", cfgPath, "runs", "show", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid run id") {
		t.Fatalf("error = %v, want invalid run id", err)
	}
}
