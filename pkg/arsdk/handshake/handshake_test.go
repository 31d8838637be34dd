package handshake

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestRequestResponseUseWireFieldNames(t *testing.T) {
	reqJSON := []byte(`{"d2c_port":9988,"controller_name":"ctrl","proto_v_min":1,"proto_v_max":3}`)
	var req Request
	if err := json.Unmarshal(reqJSON, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if req.D2CPort != 9988 || req.ControllerName != "ctrl" || req.ProtoVersionMin != 1 || req.ProtoVersionMax != 3 {
		t.Fatalf("decoded request = %+v, want d2c_port=9988 controller_name=ctrl proto_v_min=1 proto_v_max=3", req)
	}

	resp := Response{Status: 0, C2DPort: 2233, ProtoVersion: 3, QoSMode: 0}
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal response back to map: %v", err)
	}
	if got["c2d_port"] != float64(2233) || got["proto_v"] != float64(3) || got["qos_mode"] != float64(0) {
		t.Fatalf("encoded response = %s, want c2d_port=2233 proto_v=3 qos_mode=0", out)
	}
}

func TestNegotiateVersion(t *testing.T) {
	cases := []struct {
		reqMin, reqMax, devMin, devMax int
		wantVersion                    int
		wantOK                        bool
	}{
		{1, 3, 1, 3, 3, true},
		{1, 1, 2, 3, 0, false},
		{2, 3, 1, 2, 2, true},
		{1, 3, 3, 3, 3, true},
	}
	for _, c := range cases {
		v, ok := NegotiateVersion(c.reqMin, c.reqMax, c.devMin, c.devMax)
		if ok != c.wantOK || (ok && v != c.wantVersion) {
			t.Errorf("NegotiateVersion(%d,%d,%d,%d) = (%d,%v), want (%d,%v)",
				c.reqMin, c.reqMax, c.devMin, c.devMax, v, ok, c.wantVersion, c.wantOK)
		}
	}
}

func TestDialNetRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		_ = ServeNet(ln, func(req Request) Response {
			return Response{Status: 0, C2DPort: 54321, QoSMode: req.QoSMode}
		})
	}()

	addr := ln.Addr().(*net.TCPAddr)
	resp, err := DialNet("127.0.0.1", addr.Port, Request{
		ControllerType: "computer",
		ControllerName: "test",
		D2CPort:        43210,
		QoSMode:        0,
	}, 2*time.Second)
	if err != nil {
		t.Fatalf("DialNet: %v", err)
	}
	if resp.C2DPort != 54321 {
		t.Errorf("C2DPort = %d, want 54321", resp.C2DPort)
	}
}

func TestDialNetQoSMismatchRejected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		_ = ServeNet(ln, func(req Request) Response {
			return Response{Status: 0, C2DPort: 1, QoSMode: 1 - req.QoSMode}
		})
	}()

	addr := ln.Addr().(*net.TCPAddr)
	_, err = DialNet("127.0.0.1", addr.Port, Request{QoSMode: 0}, 2*time.Second)
	if err == nil {
		t.Fatal("expected qos_mode mismatch to be rejected")
	}
}

func TestNegotiateMuxQoSMismatch(t *testing.T) {
	respPayload, _ := EncodeConnResp(ConnResp{Status: 0, QoSMode: 1})
	send := func([]byte) error { return nil }
	recv := func() ([]byte, error) { return respPayload, nil }
	_, err := NegotiateMux(send, recv, ConnReq{QoSMode: 0, ProtoMin: 1, ProtoMax: 3}, 1, 3)
	if err == nil {
		t.Fatal("expected qos_mode mismatch to be rejected")
	}
}

func TestNegotiateMuxVersionMismatch(t *testing.T) {
	respPayload, _ := EncodeConnResp(ConnResp{Status: 0, QoSMode: 0})
	send := func([]byte) error { return nil }
	recv := func() ([]byte, error) { return respPayload, nil }
	_, err := NegotiateMux(send, recv, ConnReq{QoSMode: 0, ProtoMin: 4, ProtoMax: 5}, 1, 3)
	if err == nil {
		t.Fatal("expected incompatible version range to be rejected")
	}
}
