package handshake

import (
	"encoding/json"

	"github.com/arsdk-go/arsdk/pkg/arsdk/arsdkerr"
)

// ConnReq and ConnResp are the mux backend's message-based equivalent of
// the net backend's JSON request/response (§4.8): instead of a TCP
// connection, both sides exchange one opaque message each over the mux
// collaborator's control channel.
type ConnReq struct {
	ControllerType string `json:"controller_type"`
	ControllerName string `json:"controller_name"`
	QoSMode        int    `json:"qos_mode"`
	ProtoMin       int    `json:"proto_min"`
	ProtoMax       int    `json:"proto_max"`
}

type ConnResp struct {
	Status       int `json:"status"`
	QoSMode      int `json:"qos_mode"`
	ProtoVersion int `json:"proto_version"`
}

// EncodeConnReq/DecodeConnReq and their Resp counterparts let a mux
// channel implementation carry the handshake as plain []byte messages.
func EncodeConnReq(r ConnReq) ([]byte, error) { return json.Marshal(r) }

func DecodeConnReq(data []byte) (ConnReq, error) {
	var r ConnReq
	err := json.Unmarshal(data, &r)
	return r, err
}

func EncodeConnResp(r ConnResp) ([]byte, error) { return json.Marshal(r) }

func DecodeConnResp(data []byte) (ConnResp, error) {
	var r ConnResp
	err := json.Unmarshal(data, &r)
	return r, err
}

// NegotiateMux runs the mux-backend handshake over a send/recv pair
// (typically the mux Channel's control-message functions), applying the
// same version-negotiation and exact qos_mode rule as the net backend.
func NegotiateMux(send func([]byte) error, recv func() ([]byte, error), req ConnReq, devMin, devMax int) (ConnResp, error) {
	payload, err := EncodeConnReq(req)
	if err != nil {
		return ConnResp{}, arsdkerr.Wrap(arsdkerr.InvalidArgument, err, "handshake: encode conn_req")
	}
	if err := send(payload); err != nil {
		return ConnResp{}, arsdkerr.Wrap(arsdkerr.Transient, err, "handshake: send conn_req")
	}
	raw, err := recv()
	if err != nil {
		return ConnResp{}, arsdkerr.Wrap(arsdkerr.Protocol, err, "handshake: recv conn_resp")
	}
	resp, err := DecodeConnResp(raw)
	if err != nil {
		return ConnResp{}, arsdkerr.Wrap(arsdkerr.Protocol, err, "handshake: decode conn_resp")
	}
	if resp.QoSMode != req.QoSMode {
		return resp, arsdkerr.New(arsdkerr.Protocol, "handshake: qos_mode mismatch (want %d, got %d)", req.QoSMode, resp.QoSMode)
	}
	if _, ok := NegotiateVersion(req.ProtoMin, req.ProtoMax, devMin, devMax); !ok {
		return resp, arsdkerr.New(arsdkerr.Protocol, "handshake: no compatible protocol version")
	}
	return resp, nil
}
