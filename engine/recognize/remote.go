package recognize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

// DetectTextMethod is the full gRPC method name of the text-detection call.
// Request and response are google.protobuf.Struct values:
//
//	request:  {"bucket": "...", "key": "..."}
//	response: {"detections": [{"text": "...", "confidence": 99.1, "type": "LINE"}]}
const DetectTextMethod = "/wessley.vision.v1.TextDetection/DetectText"

// Invoker is the unary-call subset of *grpc.ClientConn.
type Invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// Remote calls a text-detection service over gRPC.
type Remote struct {
	conn Invoker
}

// Compile-time interface check.
var _ Recognizer = (*Remote)(nil)

// NewRemote wraps an existing connection.
func NewRemote(conn Invoker) *Remote {
	return &Remote{conn: conn}
}

// DialRemote opens a plaintext client connection to addr.
func DialRemote(addr string) (*Remote, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("recognize: dial %s: %w", addr, err)
	}
	return NewRemote(conn), conn, nil
}

// Recognize sends ref to the service and converts its detections.
func (r *Remote) Recognize(ctx context.Context, ref domain.ImageRef) ([]domain.TextFragment, error) {
	req, err := structpb.NewStruct(map[string]any{
		"bucket": ref.Bucket,
		"key":    ref.Key,
	})
	if err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, DetectTextMethod, req, resp); err != nil {
		return nil, fmt.Errorf("recognize: detect text: %w", err)
	}
	return fragmentsFromStruct(resp)
}

func fragmentsFromStruct(resp *structpb.Struct) ([]domain.TextFragment, error) {
	list := resp.GetFields()["detections"].GetListValue()
	out := make([]domain.TextFragment, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		d := v.GetStructValue()
		if d == nil {
			return nil, fmt.Errorf("recognize: detection %d is not an object", i)
		}
		fields := d.GetFields()
		frag := domain.TextFragment{
			Text: fields["text"].GetStringValue(),
			Kind: strings.ToUpper(fields["type"].GetStringValue()),
		}
		if c, ok := fields["confidence"]; ok {
			if _, isNum := c.GetKind().(*structpb.Value_NumberValue); isNum {
				frag.Confidence = Percent(c.GetNumberValue())
			}
		}
		if g := fields["geometry"].GetStructValue(); g != nil {
			gf := g.GetFields()
			frag.Geometry = &domain.Geometry{
				Left:   gf["left"].GetNumberValue(),
				Top:    gf["top"].GetNumberValue(),
				Width:  gf["width"].GetNumberValue(),
				Height: gf["height"].GetNumberValue(),
			}
		}
		out = append(out, frag)
	}
	return out, nil
}
