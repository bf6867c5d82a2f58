// Package grpcapi implements the holomorph.v1.Remapper gRPC service. Messages
// are protobuf well-known types, so clients need no generated code: request
// parameters travel in metadata and pixel buffers in BytesValue.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/holomorph/pkg/api"
	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/remap"
	"github.com/lemonberrylabs/holomorph/pkg/store"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "holomorph.v1.Remapper"

// MaxMessageSize bounds one request or response message, matching the REST
// body limit. A full-hd frame is about 6 MiB, over gRPC's 4 MiB default.
const MaxMessageSize = api.MaxBodySize

// Metadata keys carrying Apply and Stream parameters.
const (
	MetadataExpression = "expression"
	MetadataName       = "name"
	MetadataWidth      = "width"
	MetadataHeight     = "height"
)

// RemapperServer is the server API for the Remapper service.
type RemapperServer interface {
	// Parse returns {"expression": canonical form, "tree": structure}.
	Parse(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Apply remaps one raw RGB buffer.
	Apply(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	// Stream remaps a sequence of frames through one lookup table.
	Stream(grpc.ServerStream) error
}

// Server implements the Remapper service.
type Server struct {
	store  *store.Store
	grpc   *grpc.Server
	health *health.Server
}

// New creates a new gRPC server wrapping the given store.
func New(s *store.Store) *Server {
	srv := &Server{
		store:  s,
		health: health.NewServer(),
	}

	gs := grpc.NewServer(
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
	)
	gs.RegisterService(&RemapperServiceDesc, srv)
	healthpb.RegisterHealthServer(gs, srv.health)
	srv.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop marks the service as not serving and stops the server.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// --- Remapper Service ---

func (s *Server) Parse(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	tree, err := expr.Parse(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]interface{}{
		"expression": expr.Format(tree),
		"tree":       expr.Describe(tree),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding tree: %v", err)
	}
	return out, nil
}

func (s *Server) Apply(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	p, err := requestParams(ctx)
	if err != nil {
		return nil, err
	}
	src, err := types.FromRaw(req.GetValue(), p.width, p.height)
	if err != nil {
		return nil, toStatus(err)
	}

	if p.name != "" {
		t, err := s.store.Table(p.name, p.width, p.height)
		if err != nil {
			return nil, toStatus(err)
		}
		out, err := t.Apply(src)
		if err != nil {
			return nil, toStatus(err)
		}
		return wrapperspb.Bytes(out.Pix), nil
	}

	tree, err := expr.Parse(p.expression)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(remap.Transform(src, tree).Pix), nil
}

func (s *Server) Stream(stream grpc.ServerStream) error {
	ctx := stream.Context()
	p, err := requestParams(ctx)
	if err != nil {
		return err
	}

	var t *remap.LookupTable
	if p.name != "" {
		t, err = s.store.Table(p.name, p.width, p.height)
	} else {
		var tree expr.Node
		if tree, err = expr.Parse(p.expression); err == nil {
			t, err = remap.BuildLookup(tree, p.width, p.height)
		}
	}
	if err != nil {
		return toStatus(err)
	}

	out := types.NewImage(p.width, p.height)
	for {
		in := new(wrapperspb.BytesValue)
		if err := stream.RecvMsg(in); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		src, err := types.FromRaw(in.GetValue(), p.width, p.height)
		if err != nil {
			return toStatus(err)
		}
		if err := t.ApplyInto(out, src); err != nil {
			return toStatus(err)
		}
		if err := stream.SendMsg(wrapperspb.Bytes(out.Pix)); err != nil {
			return err
		}
	}
}

// --- Helpers ---

type params struct {
	expression string
	name       string
	width      int
	height     int
}

func requestParams(ctx context.Context) (params, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	get := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}

	p := params{expression: get(MetadataExpression), name: get(MetadataName)}
	if (p.expression == "") == (p.name == "") {
		return p, status.Error(codes.InvalidArgument, "exactly one of expression or name metadata is required")
	}

	var err error
	if p.width, err = strconv.Atoi(get(MetadataWidth)); err != nil || p.width <= 0 {
		return p, status.Error(codes.InvalidArgument, "width metadata must be a positive integer")
	}
	if p.height, err = strconv.Atoi(get(MetadataHeight)); err != nil || p.height <= 0 {
		return p, status.Error(codes.InvalidArgument, "height metadata must be a positive integer")
	}
	if err := types.CheckSize(p.width, p.height); err != nil {
		return p, status.Error(codes.InvalidArgument, err.Error())
	}
	return p, nil
}

func toStatus(err error) error {
	var pe *types.ParseError
	switch {
	case errors.As(err, &pe),
		errors.Is(err, types.ErrDimensionMismatch),
		errors.Is(err, types.ErrTooLarge),
		errors.Is(err, store.ErrInvalidName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
