// Package rpc exposes recommendations over gRPC without generated stubs:
// the request is a google.protobuf.StringValue, the reply a google.protobuf.Struct
// with the same shape as the JSON API.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"bookrec/internal/logger"
	"bookrec/internal/recommend"
)

const (
	ServiceName     = "bookrec.v1.Recommender"
	RecommendMethod = "/" + ServiceName + "/Recommend"

	requestIDKey = "x-request-id"
)

type RecommenderServer interface {
	Recommend(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecommenderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recommend", Handler: recommendHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookrec/v1/recommender.proto",
}

func recommendHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecommenderServer).Recommend(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RecommendMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RecommenderServer).Recommend(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type Recommender interface {
	Recommend(ctx context.Context, raw string) (*recommend.Result, error)
}

type Server struct {
	recommender Recommender
}

func NewServer(r Recommender) *Server {
	return &Server{recommender: r}
}

func (s *Server) Recommend(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	defer logger.Track(ctx, "rpc: Recommend")()

	res, err := s.recommender.Recommend(ctx, in.GetValue())
	switch {
	case errors.Is(err, recommend.ErrEmptyQuery):
		return nil, status.Error(codes.InvalidArgument, "query is empty")
	case err != nil:
		logger.For(ctx).WithError(err).WithField("query", in.GetValue()).Error("recommend.failed")
		return nil, status.Errorf(codes.Unavailable, "vector search failed: %v", err)
	}
	return toStruct(res)
}

// Register attaches the service to a gRPC server.
func Register(s *grpc.Server, srv RecommenderServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// RequestIDInterceptor takes x-request-id from incoming metadata (or makes one)
// and puts it into the context for logger.For.
func RequestIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(requestIDKey); len(vals) > 0 {
			id = vals[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	ctx = logger.ContextWithID(ctx, id)
	logger.For(ctx).WithField("method", info.FullMethod).Info("grpc.request")
	return handler(ctx, req)
}

func toStruct(res *recommend.Result) (*structpb.Struct, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// Client calls the Recommender service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Recommend(ctx context.Context, query string) (*recommend.Result, error) {
	if id := logger.IDFrom(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, requestIDKey, id)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RecommendMethod, wrapperspb.String(query), out); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out.AsMap())
	if err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	var res recommend.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return &res, nil
}
