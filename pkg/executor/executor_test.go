package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/compare"
	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/events"
	"github.com/dirmirror/dirmirror/pkg/filesystem"
	"github.com/dirmirror/dirmirror/pkg/fsview"
	"github.com/dirmirror/dirmirror/pkg/hashing"
	"github.com/dirmirror/dirmirror/pkg/syncpath"
)

func withTemporaryHome(t *testing.T) {
	t.Helper()
	directory, err := os.MkdirTemp("", ".dirmirror_executor_home")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(directory) })
	previous := filesystem.DataDirectoryPath
	filesystem.DataDirectoryPath = directory
	t.Cleanup(func() { filesystem.DataDirectoryPath = previous })
}

func tempDir(t *testing.T, name string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", name)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func loadedView(t *testing.T, eng engine.Engine, root string) *fsview.View {
	t.Helper()
	p, err := syncpath.Root(syncpath.FamilyPOSIX, root)
	if err != nil {
		t.Fatal(err)
	}
	v := fsview.New(eng, p, nil)
	if err := v.Load(context.Background()); err != nil {
		t.Fatal("load failed:", err)
	}
	return v
}

// S1-shaped scenario run end to end: a new file in the source is
// copied to the destination by the executor under update mode.
func TestRunCopiesNewFileToDestination(t *testing.T) {
	withTemporaryHome(t)

	srcRoot := tempDir(t, "dirmirror_exec_src")
	dstRoot := tempDir(t, "dirmirror_exec_dst")
	if err := os.WriteFile(filepath.Join(srcRoot, "a.txt"), []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	eng := engine.NewLocal(hashing.AlgorithmSHA256, nil)
	src := loadedView(t, eng, srcRoot)
	dst := loadedView(t, eng, dstRoot)

	tree, err := compare.Compare(context.Background(), src, dst, compare.ModeUpdate, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	exec := New(tree, eng, src, dst, 2, nil)
	if err := exec.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dstRoot, "a.txt"))
	if err != nil {
		t.Fatalf("expected a.txt to be copied to the destination: %v", err)
	}
	if string(data) != "0123456789" {
		t.Errorf("unexpected destination content: %q", data)
	}

	if node := tree.Get("a.txt"); node.Action.Common().Status != action.StatusSuccess {
		t.Errorf("expected a terminal success status, got %v", node.Action.Common().Status)
	}
}

// A directory deletion scheduled alongside a file deletion inside it
// must run the file deletion first, then the now-empty directory.
func TestRunDeletesDirectoryContentsBeforeTheDirectory(t *testing.T) {
	withTemporaryHome(t)

	srcRoot := tempDir(t, "dirmirror_exec_rmdir_src")
	dstRoot := tempDir(t, "dirmirror_exec_rmdir_dst")

	if err := os.MkdirAll(filepath.Join(dstRoot, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dstRoot, "sub", "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(srcRoot, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcRoot, "sub", "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	eng := engine.NewLocal(hashing.AlgorithmSHA256, nil)
	firstSrc := loadedView(t, eng, srcRoot)
	firstDst := loadedView(t, eng, dstRoot)
	now := time.Now().UTC()
	if err := firstSrc.Flush(now); err != nil {
		t.Fatal(err)
	}
	if err := firstDst.Flush(now); err != nil {
		t.Fatal(err)
	}

	// Source loses the whole subtree; mirror mode propagates the
	// deletion to the destination.
	if err := os.RemoveAll(filepath.Join(srcRoot, "sub")); err != nil {
		t.Fatal(err)
	}

	src := loadedView(t, eng, srcRoot)
	dst := loadedView(t, eng, dstRoot)

	tree, err := compare.Compare(context.Background(), src, dst, compare.ModeMirror, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	exec := New(tree, eng, src, dst, 4, nil)
	if err := exec.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dstRoot, "sub")); !os.IsNotExist(err) {
		t.Errorf("expected 'sub' to be fully removed from the destination, stat returned: %v", err)
	}
}

func TestRunEmitsBeforeAndAfterSynchingEvents(t *testing.T) {
	withTemporaryHome(t)

	srcRoot := tempDir(t, "dirmirror_exec_events_src")
	dstRoot := tempDir(t, "dirmirror_exec_events_dst")

	eng := engine.NewLocal(hashing.AlgorithmSHA256, nil)
	src := loadedView(t, eng, srcRoot)
	dst := loadedView(t, eng, dstRoot)

	tree, err := compare.Compare(context.Background(), src, dst, compare.ModeSync, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	broadcaster := events.NewBroadcaster()
	ch, unsubscribe := broadcaster.Subscribe()
	defer unsubscribe()

	exec := New(tree, eng, src, dst, 2, broadcaster)
	if err := exec.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := <-ch
	if first.Kind != events.BeforeSynching {
		t.Errorf("expected before_synching first, got %v", first.Kind)
	}
	var sawAfter bool
	for e := range drain(ch) {
		if e.Kind == events.AfterSynching {
			sawAfter = true
		}
	}
	if !sawAfter {
		t.Error("expected an after_synching event")
	}
}

func drain(ch <-chan events.Event) <-chan events.Event {
	out := make(chan events.Event, len(ch))
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				close(out)
				return out
			}
			out <- e
		default:
			close(out)
			return out
		}
	}
}
