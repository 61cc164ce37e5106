// Package rpc holds the gRPC surface of the service: service descriptors,
// request/response conversion and error mapping. Messages travel as
// google.protobuf.Struct, so clients need no generated stubs.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Decode copies the fields of in into dst, a pointer to a json-tagged struct.
func Decode(in *structpb.Struct, dst interface{}) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrInvalidArgument, err)
	}
	return nil
}

// Encode converts v, any json-marshalable value that encodes as an object,
// into a Struct.
func Encode(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
