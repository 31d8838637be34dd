package codec

import "testing"

func TestEncodeDecodeTakeOff(t *testing.T) {
	desc, ok := FindDescriptor(ProjectArdrone3, ClassArdrone3Piloting, 0)
	if !ok {
		t.Fatal("TakeOff descriptor not registered")
	}
	cmd, err := Encode(desc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, args, err := DecodeCommand(cmd.Payload())
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if got.Desc.Name != "Ardrone3.Piloting.TakeOff" {
		t.Errorf("decoded wrong descriptor: %s", got.Desc.Name)
	}
	if len(args) != 0 {
		t.Errorf("expected 0 args, got %d", len(args))
	}
}

func TestEncodeDecodePCMD(t *testing.T) {
	desc, ok := FindDescriptor(ProjectArdrone3, ClassArdrone3Piloting, 2)
	if !ok {
		t.Fatal("PCMD descriptor not registered")
	}
	cmd, err := Encode(desc, uint8(1), int8(-10), int8(20), int8(0), int8(5), uint32(123456))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, args, err := DecodeCommand(cmd.Payload())
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	want := []interface{}{uint8(1), int8(-10), int8(20), int8(0), int8(5), uint32(123456)}
	if len(args) != len(want) {
		t.Fatalf("got %d args, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d: got %#v, want %#v", i, args[i], want[i])
		}
	}
}

func TestEncodeWrongArgCount(t *testing.T) {
	desc, _ := FindDescriptor(ProjectArdrone3, ClassArdrone3Piloting, 0)
	if _, err := Encode(desc, uint8(1)); err == nil {
		t.Fatal("expected error for wrong arg count")
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	if _, _, err := DecodeCommand([]byte{1, 2}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestFindDescriptorShortCircuitsOnClass(t *testing.T) {
	// Known project, unknown class: must not fall through to other
	// projects even if one happened to reuse this class/cmd pair (§4.1).
	if _, ok := FindDescriptor(ProjectArdrone3, 99, 0); ok {
		t.Fatal("expected no descriptor for unknown class")
	}
}

func TestFindDescriptorUnknownProject(t *testing.T) {
	if _, ok := FindDescriptor(99, 0, 0); ok {
		t.Fatal("expected no descriptor for unknown project")
	}
}

func TestFormatGPSFixState(t *testing.T) {
	desc, ok := FindDescriptor(ProjectArdrone3, ClassArdrone3GPSSettingsState, 0)
	if !ok {
		t.Fatal("GPSFixStateChanged descriptor not registered")
	}
	s := Format(desc, []interface{}{int32(1)})
	if s != "Ardrone3.GPSSettingsState.GPSFixStateChanged | Fixed=FIXED" {
		t.Errorf("unexpected format: %q", s)
	}
}

func TestBufferRoundTrip(t *testing.T) {
	b := NewBuffer([]byte("hello"))
	if b.RefCount() != 1 {
		t.Fatalf("new buffer refcount = %d, want 1", b.RefCount())
	}
	b2 := b.Ref()
	if b.RefCount() != 2 {
		t.Fatalf("after Ref refcount = %d, want 2", b.RefCount())
	}
	if string(b2.Bytes()) != "hello" {
		t.Errorf("Bytes() = %q", b2.Bytes())
	}
	b.Release()
	if b.RefCount() != 1 {
		t.Fatalf("after one Release refcount = %d, want 1", b.RefCount())
	}
	b2.Release()
}

func TestCommandCloneSharesBuffer(t *testing.T) {
	desc, _ := FindDescriptor(ProjectArdrone3, ClassArdrone3Piloting, 1)
	cmd, err := Encode(desc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	clone := cmd.Clone()
	if string(clone.Payload()) != string(cmd.Payload()) {
		t.Fatal("clone payload mismatch")
	}
	clone.Release()
	cmd.Release()
}
