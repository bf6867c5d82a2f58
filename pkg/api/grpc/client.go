package grpcapi

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the Remapper service over any connection, typically a
// *grpc.ClientConn. Calls send and accept messages up to MaxMessageSize;
// options passed to a call come later and take precedence.
type Client struct {
	cc       grpc.ClientConnInterface
	callOpts []grpc.CallOption
}

// NewClient creates a client on cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{
		cc: cc,
		callOpts: []grpc.CallOption{
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		},
	}
}

func (c *Client) withDefaults(opts []grpc.CallOption) []grpc.CallOption {
	return append(append([]grpc.CallOption{}, c.callOpts...), opts...)
}

// Target selects the expression to apply: either source text or the name
// of a stored expression.
type Target struct {
	Expression string
	Name       string
}

func (t Target) outgoing(ctx context.Context, width, height int) context.Context {
	kv := []string{
		MetadataWidth, strconv.Itoa(width),
		MetadataHeight, strconv.Itoa(height),
	}
	if t.Name != "" {
		kv = append(kv, MetadataName, t.Name)
	} else {
		kv = append(kv, MetadataExpression, t.Expression)
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// Parse returns the canonical form and tree of expression.
func (c *Client) Parse(ctx context.Context, expression string, opts ...grpc.CallOption) (string, map[string]interface{}, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, parseMethod, wrapperspb.String(expression), out, c.withDefaults(opts)...); err != nil {
		return "", nil, err
	}
	m := out.AsMap()
	canonical, _ := m["expression"].(string)
	tree, _ := m["tree"].(map[string]interface{})
	return canonical, tree, nil
}

// Apply remaps a raw width×height RGB buffer.
func (c *Client) Apply(ctx context.Context, target Target, pixels []byte, width, height int, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	ctx = target.outgoing(ctx, width, height)
	if err := c.cc.Invoke(ctx, applyMethod, wrapperspb.Bytes(pixels), out, c.withDefaults(opts)...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// FrameStream sends frames and receives them remapped, in order.
type FrameStream struct {
	stream grpc.ClientStream
}

// Stream opens a frame stream. All frames must be width×height.
func (c *Client) Stream(ctx context.Context, target Target, width, height int, opts ...grpc.CallOption) (*FrameStream, error) {
	ctx = target.outgoing(ctx, width, height)
	s, err := c.cc.NewStream(ctx, &RemapperServiceDesc.Streams[0], streamMethod, c.withDefaults(opts)...)
	if err != nil {
		return nil, err
	}
	return &FrameStream{stream: s}, nil
}

// Send sends one frame.
func (f *FrameStream) Send(frame []byte) error {
	return f.stream.SendMsg(wrapperspb.Bytes(frame))
}

// Recv receives the next remapped frame.
func (f *FrameStream) Recv() ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := f.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// CloseSend signals that no more frames follow.
func (f *FrameStream) CloseSend() error {
	if err := f.stream.CloseSend(); err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}
