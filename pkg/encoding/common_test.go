package encoding

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAndUnmarshalNonExistent(t *testing.T) {
	err := LoadAndUnmarshal("/does/not/exist", func([]byte) error { return nil })
	if err == nil {
		t.Fatal("expected error loading non-existent file")
	}
}

func TestMarshalAndSaveLoadAndUnmarshalRoundTrip(t *testing.T) {
	directory, err := os.MkdirTemp("", "dirmirror_encoding")
	if err != nil {
		t.Fatal("unable to create temporary directory:", err)
	}
	defer os.RemoveAll(directory)

	target := filepath.Join(directory, "data")
	payload := []byte("hello")

	if err := MarshalAndSave(target, func() ([]byte, error) {
		return payload, nil
	}, nil); err != nil {
		t.Fatal("marshal and save failed:", err)
	}

	var loaded []byte
	if err := LoadAndUnmarshal(target, func(data []byte) error {
		loaded = append([]byte(nil), data...)
		return nil
	}); err != nil {
		t.Fatal("load and unmarshal failed:", err)
	}

	if !bytes.Equal(loaded, payload) {
		t.Error("round-tripped data did not match original payload")
	}
}
