package fingerprint

import "testing"

func TestComputeShortFile(t *testing.T) {
	data := []byte("hello")
	sig := Compute(data)
	if sig.Size != uint32(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), sig.Size)
	}
	if sig.IsZero() {
		t.Fatal("expected non-zero signature")
	}
}

func TestComputeLongFileCapsAtSignatureSize(t *testing.T) {
	data := make([]byte, DefaultSignatureSize*2)
	for i := range data {
		data[i] = byte(i)
	}
	sig := Compute(data)
	if sig.Size != DefaultSignatureSize {
		t.Fatalf("expected capped size %d, got %d", DefaultSignatureSize, sig.Size)
	}
	// Appending more bytes past the signature window must not change the signature.
	more := append(append([]byte{}, data...), []byte("tail")...)
	sig2 := Compute(more)
	if !sig.Matches(sig2) {
		t.Fatal("expected signature to be stable across appended bytes")
	}
}

func TestClassifyUnchanged(t *testing.T) {
	id := Identity{Device: 1, Inode: 42}
	sig := Compute([]byte("abc"))
	recorded := Fingerprint{Identity: id, Signature: sig}
	current := Fingerprint{Identity: id, Signature: sig}
	if got := Classify(recorded, current, Signature{}, false); got != KindUnchanged {
		t.Fatalf("expected KindUnchanged, got %v", got)
	}
}

func TestClassifyTruncated(t *testing.T) {
	id := Identity{Device: 1, Inode: 42}
	recorded := Fingerprint{Identity: id, Signature: Compute([]byte("abc"))}
	current := Fingerprint{Identity: id, Signature: Compute([]byte("xyz"))}
	if got := Classify(recorded, current, Signature{}, false); got != KindTruncated {
		t.Fatalf("expected KindTruncated, got %v", got)
	}
}

func TestClassifyRotated(t *testing.T) {
	oldID := Identity{Device: 1, Inode: 42}
	newID := Identity{Device: 1, Inode: 43}
	sig := Compute([]byte("same content prefix"))
	recorded := Fingerprint{Identity: oldID, Signature: sig}
	current := Fingerprint{Identity: newID, Signature: Compute([]byte("different"))}
	// peer signature corresponds to the *new* file's actual content
	peerSig := Compute([]byte("different"))
	if got := Classify(recorded, current, peerSig, true); got != KindRotated {
		t.Fatalf("expected KindRotated, got %v", got)
	}
}

func TestClassifyNew(t *testing.T) {
	recorded := Fingerprint{}
	current := Fingerprint{Identity: Identity{Device: 1, Inode: 99}, Signature: Compute([]byte("new"))}
	if got := Classify(recorded, current, Signature{}, false); got != KindNew {
		t.Fatalf("expected KindNew, got %v", got)
	}
}
