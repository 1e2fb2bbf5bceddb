package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dirmirror/dirmirror/pkg/hashing"
)

func TestLocalCopyFileAndStat(t *testing.T) {
	srcRoot, err := os.MkdirTemp("", "dirmirror_engine_src")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(srcRoot)
	dstRoot, err := os.MkdirTemp("", "dirmirror_engine_dst")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dstRoot)

	if err := os.WriteFile(filepath.Join(srcRoot, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	local := NewLocal(hashing.AlgorithmSHA256, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := local.CopyFile(ctx, srcRoot, "a.txt", dstRoot, "a.txt")
	if err != nil {
		t.Fatal("copy failed to start:", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		state, jerr := local.JobState(handle)
		if state == JobFinished {
			break
		}
		if state == JobFailed {
			t.Fatal("copy job failed:", jerr)
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for copy job to finish")
		}
		time.Sleep(time.Millisecond)
	}

	record, err := local.Stat(ctx, dstRoot, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if record == nil {
		t.Fatal("expected destination file to exist after copy")
	}
	if record.Size != 5 {
		t.Errorf("expected size 5, got %d", record.Size)
	}

	exists, err := local.Exists(ctx, srcRoot, "missing.txt")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("did not expect missing.txt to exist")
	}
}

func TestLocalChecksumMatches(t *testing.T) {
	root, err := os.MkdirTemp("", "dirmirror_engine_checksum")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)

	if err := os.WriteFile(filepath.Join(root, "f"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	local := NewLocal(hashing.AlgorithmSHA256, nil)
	sum, err := local.Checksum(context.Background(), root, "f", false)
	if err != nil {
		t.Fatal(err)
	}
	if sum == "" {
		t.Error("expected a non-empty checksum")
	}
}

func TestLocalDeleteFileAndRmdir(t *testing.T) {
	root, err := os.MkdirTemp("", "dirmirror_engine_delete")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)

	if err := os.WriteFile(filepath.Join(root, "f"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	local := NewLocal(hashing.AlgorithmSHA256, nil)
	ctx := context.Background()

	if err := local.DeleteFile(ctx, root, "f"); err != nil {
		t.Fatal("delete failed:", err)
	}
	if exists, _ := local.Exists(ctx, root, "f"); exists {
		t.Error("expected file to be gone after delete")
	}

	if err := local.Rmdir(ctx, root, "empty"); err != nil {
		t.Fatal("rmdir failed:", err)
	}
	if exists, _ := local.Exists(ctx, root, "empty"); exists {
		t.Error("expected directory to be gone after rmdir")
	}
}

func TestLocalStopPendingJobsMarksFailed(t *testing.T) {
	local := NewLocal(hashing.AlgorithmSHA256, nil)
	local.mu.Lock()
	local.jobs["pending"] = JobInProgress
	local.mu.Unlock()

	if err := local.StopPendingJobs(context.Background()); err != nil {
		t.Fatal(err)
	}

	state, jerr := local.JobState("pending")
	if state != JobFailed {
		t.Errorf("expected pending job to be marked failed, got %v", state)
	}
	if jerr == nil {
		t.Error("expected an error recorded for the stopped job")
	}
}
