package cmditf

import "testing"

func TestDecodePackV3AcceptsExactFitFragment(t *testing.T) {
	pb := newPackBuilder(3, v3MaxPackSize)
	if !pb.addFragment([]byte("hello"), false) {
		t.Fatal("addFragment failed to fit a small chunk in an empty pack")
	}
	items, err := decodePack(3, pb.buf)
	if err != nil {
		t.Fatalf("decodePack: %v", err)
	}
	if len(items) != 1 || string(items[0].data) != "hello" {
		t.Fatalf("items = %+v, want one item with data %q", items, "hello")
	}
}

func TestDecodePackV3RejectsTruncatedItemWithoutPanicking(t *testing.T) {
	pb := newPackBuilder(3, v3MaxPackSize)
	if !pb.addFragment([]byte("hello"), false) {
		t.Fatal("addFragment failed")
	}
	// Drop the last byte: the varuint length prefix now claims one more
	// byte than the payload actually carries.
	truncated := pb.buf[:len(pb.buf)-1]
	if _, err := decodePack(3, truncated); err == nil {
		t.Fatal("expected decodePack to reject a truncated v3 item, got nil error")
	}
}
