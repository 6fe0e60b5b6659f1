package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered as a gRPC call content-subtype so every
// RPC on this connection marshals its request/response as JSON rather
// than protobuf wire format. There is no protoc toolchain available to
// generate real .proto bindings for the control-plane service in this
// environment, and hand-authoring protobuf-wire-compatible message
// types would just be a different flavor of the same problem; a
// registered codec is the documented grpc-go extension point for
// transporting non-proto.Message payloads over a real *grpc.ClientConn,
// so the agent still gets actual gRPC framing, deadlines, interceptors
// and status codes, just with JSON bodies instead of protobuf ones.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T as json: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal json into %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return jsonCodecName }
