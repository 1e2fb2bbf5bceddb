package hashing

import (
	"strings"
	"testing"
)

func TestAlgorithmTextRoundTrip(t *testing.T) {
	for _, a := range []Algorithm{AlgorithmSHA1, AlgorithmSHA256, AlgorithmBLAKE3} {
		text, err := a.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText failed: %v", err)
		}
		var roundTripped Algorithm
		if err := roundTripped.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText failed: %v", err)
		}
		if roundTripped != a {
			t.Fatalf("round trip mismatch: %v != %v", roundTripped, a)
		}
		if !a.Supported() {
			t.Fatalf("expected %v to be supported", a)
		}
	}
}

func TestUnmarshalTextRejectsUnknown(t *testing.T) {
	var a Algorithm
	if err := a.UnmarshalText([]byte("md5")); err == nil {
		t.Fatal("expected an error for an unsupported algorithm name")
	}
}

func TestDefaultNotSupported(t *testing.T) {
	if AlgorithmDefault.Supported() {
		t.Fatal("AlgorithmDefault must not be Supported")
	}
	if !AlgorithmDefault.IsDefault() {
		t.Fatal("AlgorithmDefault.IsDefault() must be true")
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	for _, a := range []Algorithm{AlgorithmSHA1, AlgorithmSHA256, AlgorithmBLAKE3} {
		first, err := Digest(a, strings.NewReader("hello world"))
		if err != nil {
			t.Fatalf("Digest failed: %v", err)
		}
		second, err := Digest(a, strings.NewReader("hello world"))
		if err != nil {
			t.Fatalf("Digest failed: %v", err)
		}
		if first != second {
			t.Fatalf("%v: expected deterministic digest, got %q and %q", a, first, second)
		}
		other, err := Digest(a, strings.NewReader("goodbye world"))
		if err != nil {
			t.Fatalf("Digest failed: %v", err)
		}
		if first == other {
			t.Fatalf("%v: expected different content to produce a different digest", a)
		}
	}
}
