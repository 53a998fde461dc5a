// Package rpc is the gRPC adapter. Like the REST adapter it owns only wire
// shapes and status-code mapping; every decision is delegated to the core.
//
// The service surface is five tiny messages, so the stubs are maintained by
// hand: requests and responses are plain structs serialized with msgpack
// through a registered gRPC codec, and the service is registered via an
// explicit grpc.ServiceDesc. Clients built with NewClient select the codec
// per call; foreign clients must send content-subtype "msgpack".
package rpc

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/unkn0wn-root/kvgate"
)

// ServiceName is the full gRPC service name.
const ServiceName = "kvgate.v1.Store"

// CodecName is the content-subtype clients must request.
const CodecName = "msgpack"

func init() {
	encoding.RegisterCodec(wireCodec{})
}

// wireCodec serializes RPC messages with msgpack.
type wireCodec struct{}

func (wireCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (wireCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (wireCodec) Name() string                       { return CodecName }

type GetRequest struct {
	Token string `msgpack:"token"`
	Key   string `msgpack:"key"`
}

type GetResponse struct {
	Value []byte `msgpack:"value"`
	Found bool   `msgpack:"found"`
}

type SetRequest struct {
	Token      string `msgpack:"token"`
	Key        string `msgpack:"key"`
	Value      []byte `msgpack:"value"`
	TTLSeconds int64  `msgpack:"ttl_seconds"`
}

type SetResponse struct {
	Message string `msgpack:"message"`
}

type DeleteRequest struct {
	Token string `msgpack:"token"`
	Key   string `msgpack:"key"`
}

type DeleteResponse struct {
	Message string `msgpack:"message"`
}

type ListRequest struct {
	Token  string `msgpack:"token"`
	Prefix string `msgpack:"prefix"`
}

type ListResponse struct {
	Key string `msgpack:"key"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Healthy bool   `msgpack:"healthy"`
	Message string `msgpack:"message"`
}

// StoreServer is the server-side contract of kvgate.v1.Store.
type StoreServer interface {
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Set(context.Context, *SetRequest) (*SetResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
	List(*ListRequest, StoreListServer) error
}

// StoreListServer is the send side of the List stream.
type StoreListServer interface {
	Send(*ListResponse) error
	grpc.ServerStream
}

// Register attaches a StoreServer implementation to a gRPC server.
func Register(r grpc.ServiceRegistrar, srv StoreServer) {
	r.RegisterService(&serviceDesc, srv)
}

func statusOf(err error) error {
	switch kvgate.KindOf(err) {
	case kvgate.KindUnauthorized:
		return status.Error(codes.Unauthenticated, "unauthorized")
	case kvgate.KindNotFound:
		return status.Error(codes.NotFound, "key not found")
	case kvgate.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, "invalid argument")
	case kvgate.KindBackendUnavailable:
		return status.Error(codes.Unavailable, "backend unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// Service adapts a kvgate.Store onto the StoreServer contract.
type Service struct {
	store kvgate.Store
	log   kvgate.Logger
}

var _ StoreServer = (*Service)(nil)

func NewService(store kvgate.Store, log kvgate.Logger) *Service {
	if log == nil {
		log = kvgate.NopLogger{}
	}
	return &Service{store: store, log: log}
}

// Get reports a missing key as found=false rather than an error, so callers
// do not need status inspection for the common negative case.
func (s *Service) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	v, err := s.store.Get(ctx, req.Token, req.Key)
	if err != nil {
		if kvgate.KindOf(err) == kvgate.KindNotFound {
			return &GetResponse{Found: false}, nil
		}
		return nil, statusOf(err)
	}
	return &GetResponse{Value: v, Found: true}, nil
}

func (s *Service) Set(ctx context.Context, req *SetRequest) (*SetResponse, error) {
	ttl := secondsToTTL(req.TTLSeconds)
	if err := s.store.Set(ctx, req.Token, req.Key, req.Value, ttl); err != nil {
		return nil, statusOf(err)
	}
	return &SetResponse{Message: "OK"}, nil
}

func (s *Service) Delete(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	if err := s.store.Delete(ctx, req.Token, req.Key); err != nil {
		return nil, statusOf(err)
	}
	return &DeleteResponse{Message: "OK"}, nil
}

func (s *Service) Health(ctx context.Context, _ *HealthRequest) (*HealthResponse, error) {
	if !s.store.Health(ctx) {
		return &HealthResponse{Healthy: false, Message: "Unhealthy"}, nil
	}
	return &HealthResponse{Healthy: true, Message: "OK"}, nil
}

func (s *Service) List(req *ListRequest, stream StoreListServer) error {
	ctx := stream.Context()
	keys, err := s.store.List(ctx, req.Token, req.Prefix)
	if err != nil {
		return statusOf(err)
	}
	for keys.Next(ctx) {
		if err := stream.Send(&ListResponse{Key: keys.Key()}); err != nil {
			return err
		}
	}
	if err := keys.Err(); err != nil {
		return statusOf(err)
	}
	return nil
}
