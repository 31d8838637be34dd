// Package handshake implements the connection handshake that precedes
// data exchange on either backend: a JSON request/response over TCP for
// the net backend (§4.8), and a CONN_REQ/CONN_RESP message pair for the
// mux backend. Both negotiate a protocol version and confirm qos_mode
// before the state machine moves from IDLE to CONNECTED.
package handshake

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/arsdkerr"
)

// State is the handshake's own small state machine (§4.8).
type State int

const (
	Idle State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "CONNECTED"
	}
	return "IDLE"
}

// Request is what a controller sends to open a connection (§4.8).
type Request struct {
	ControllerType  string `json:"controller_type"`
	ControllerName  string `json:"controller_name"`
	DeviceID        string `json:"device_id,omitempty"`
	D2CPort         int    `json:"d2c_port"`
	QoSMode         int    `json:"qos_mode"`
	ProtoVersionMin int    `json:"proto_v_min,omitempty"`
	ProtoVersionMax int    `json:"proto_v_max,omitempty"`
}

// Response is what the device replies with (§4.8).
type Response struct {
	Status        int `json:"status"`
	C2DPort       int `json:"c2d_port"`
	C2DUpdatePort int `json:"c2d_update_port,omitempty"`
	QoSMode       int `json:"qos_mode"`
	ProtoVersion  int `json:"proto_v,omitempty"`
}

// NegotiateVersion implements §4.8's rule: the common range runs from the
// higher of each side's minimum to the lower of each side's maximum, and
// the chosen version is the top of that range (the lower maximum). ok is
// false if the range is empty (no compatible version).
func NegotiateVersion(reqMin, reqMax, devMin, devMax int) (version int, ok bool) {
	lo := reqMin
	if devMin > lo {
		lo = devMin
	}
	hi := reqMax
	if devMax < hi {
		hi = devMax
	}
	if lo > hi {
		return 0, false
	}
	return hi, true
}

// DialNet performs the net-backend handshake: connect to addr:port, send
// req as JSON, read back one JSON Response. qos_mode must match exactly
// between req and the response or the handshake is rejected (§4.8).
func DialNet(addr string, port int, req Request, timeout time.Duration) (Response, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", addr, port), timeout)
	if err != nil {
		return Response{}, arsdkerr.Wrap(arsdkerr.NotConnected, err, "handshake: dial")
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, arsdkerr.Wrap(arsdkerr.InvalidArgument, err, "handshake: encode request")
	}
	payload = append(payload, 0)
	if _, err := conn.Write(payload); err != nil {
		return Response{}, arsdkerr.Wrap(arsdkerr.Transient, err, "handshake: write request")
	}

	data, err := bufio.NewReader(conn).ReadBytes(0)
	if err != nil && len(data) == 0 {
		return Response{}, arsdkerr.Wrap(arsdkerr.Protocol, err, "handshake: read response")
	}
	// Trailing NUL terminator, matching the device's framing.
	if n := len(data); n > 0 && data[n-1] == 0 {
		data = data[:n-1]
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, arsdkerr.Wrap(arsdkerr.Protocol, err, "handshake: decode response")
	}
	if resp.QoSMode != req.QoSMode {
		return resp, arsdkerr.New(arsdkerr.Protocol, "handshake: qos_mode mismatch (want %d, got %d)", req.QoSMode, resp.QoSMode)
	}
	return resp, nil
}

// ServeNet accepts one handshake connection on ln, invokes handle to
// produce a Response for the decoded Request, and writes it back.
func ServeNet(ln net.Listener, handle func(Request) Response) error {
	conn, err := ln.Accept()
	if err != nil {
		return arsdkerr.Wrap(arsdkerr.Transient, err, "handshake: accept")
	}
	defer conn.Close()

	data, err := bufio.NewReader(conn).ReadBytes(0)
	if err != nil && len(data) == 0 {
		return arsdkerr.Wrap(arsdkerr.Protocol, err, "handshake: read request")
	}
	if n := len(data); n > 0 && data[n-1] == 0 {
		data = data[:n-1]
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return arsdkerr.Wrap(arsdkerr.Protocol, err, "handshake: decode request")
	}

	resp := handle(req)
	out, err := json.Marshal(resp)
	if err != nil {
		return arsdkerr.Wrap(arsdkerr.InvalidArgument, err, "handshake: encode response")
	}
	out = append(out, 0)
	_, err = conn.Write(out)
	return err
}
