package util

import "testing"

func TestTagRecordKey(t *testing.T) {
	// md5("T") = b9ece18c950afbfa6b0fdbfa4ff731d3
	if got, want := TagRecordKey("app:", "T"), "app:tag_b9ece18c950afbfa6b0fdbfa4ff731d3"; got != want {
		t.Fatalf("TagRecordKey = %q, want %q", got, want)
	}
	if TagRecordKey("", "a") == TagRecordKey("", "b") {
		t.Fatalf("distinct tags must map to distinct records")
	}
	if TagRecordKey("", "a") != TagRecordKey("", "a") {
		t.Fatalf("record key must be deterministic")
	}
}
