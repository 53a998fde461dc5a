package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a thin typed wrapper over a gRPC connection to kvgate.v1.Store.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection. The connection does not need a
// default codec; every call selects the msgpack content-subtype itself.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to a kvgate RPC server without transport security.
// TLS termination is deliberately out of scope; put the server behind a
// proxy if the link is untrusted.
func Dial(target string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func callOpts() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(CodecName)}
}

// Get returns the value and whether the key exists.
func (c *Client) Get(ctx context.Context, token, key string) ([]byte, bool, error) {
	out := new(GetResponse)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/Get", &GetRequest{Token: token, Key: key}, out, callOpts()...)
	if err != nil {
		return nil, false, err
	}
	return out.Value, out.Found, nil
}

func (c *Client) Set(ctx context.Context, token, key string, value []byte, ttl time.Duration) error {
	in := &SetRequest{Token: token, Key: key, Value: value, TTLSeconds: int64(ttl / time.Second)}
	return c.cc.Invoke(ctx, "/"+ServiceName+"/Set", in, new(SetResponse), callOpts()...)
}

func (c *Client) Delete(ctx context.Context, token, key string) error {
	in := &DeleteRequest{Token: token, Key: key}
	return c.cc.Invoke(ctx, "/"+ServiceName+"/Delete", in, new(DeleteResponse), callOpts()...)
}

func (c *Client) Health(ctx context.Context) (bool, error) {
	out := new(HealthResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Health", new(HealthRequest), out, callOpts()...); err != nil {
		return false, err
	}
	return out.Healthy, nil
}

// List opens the key stream. Drain it with Recv until io.EOF.
func (c *Client) List(ctx context.Context, token, prefix string) (*KeyStream, error) {
	st, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+ServiceName+"/List", callOpts()...)
	if err != nil {
		return nil, err
	}
	if err := st.SendMsg(&ListRequest{Token: token, Prefix: prefix}); err != nil {
		return nil, err
	}
	if err := st.CloseSend(); err != nil {
		return nil, err
	}
	return &KeyStream{st: st}, nil
}

// KeyStream is the receive side of a List call.
type KeyStream struct {
	st grpc.ClientStream
}

// Recv returns the next logical key, or io.EOF when the stream ends.
func (s *KeyStream) Recv() (string, error) {
	m := new(ListResponse)
	if err := s.st.RecvMsg(m); err != nil {
		return "", err
	}
	return m.Key, nil
}
