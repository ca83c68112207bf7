package grpcmw_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/skanda-dev/rategate"
	"github.com/skanda-dev/rategate/middleware/grpcmw"
	"github.com/skanda-dev/rategate/store/memory"
)

func newEngine(t *testing.T, opts ...rategate.Option) *rategate.Engine {
	t.Helper()
	engine, err := rategate.New(memory.New(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

func peerCtx(addr string) context.Context {
	return peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP(addr), Port: 4000},
	})
}

func TestUnaryInterceptor_AllowsThenRejects(t *testing.T) {
	engine := newEngine(t, rategate.WithDefaultConfig(rategate.Config{
		Limit: 2, Window: time.Minute, Strategy: rategate.FixedWindow,
	}))
	interceptor := grpcmw.UnaryServerInterceptor(engine)

	info := &grpc.UnaryServerInfo{FullMethod: "/svc.Users/Get"}
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	ctx := peerCtx("10.0.0.3")

	for i := 0; i < 2; i++ {
		if _, err := interceptor(ctx, nil, info, handler); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}

	_, err := interceptor(ctx, nil, info, handler)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestUnaryInterceptor_ExcludedMethod(t *testing.T) {
	engine := newEngine(t,
		rategate.WithDefaultConfig(rategate.Config{Limit: 1, Window: time.Minute, Strategy: rategate.FixedWindow}),
		rategate.WithExcludedPrefixes("/grpc.health"),
	)
	interceptor := grpcmw.UnaryServerInterceptor(engine)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	ctx := peerCtx("10.0.0.3")

	for i := 0; i < 5; i++ {
		if _, err := interceptor(ctx, nil, info, handler); err != nil {
			t.Fatalf("excluded call %d: unexpected error %v", i+1, err)
		}
	}
}

func TestClientIDByMetadata(t *testing.T) {
	extract := grpcmw.ClientIDByMetadata("x-api-key")

	ctx := metadata.NewIncomingContext(peerCtx("10.0.0.3"), metadata.Pairs("x-api-key", "abc"))
	if got := extract(ctx); got != "abc" {
		t.Errorf("got %q, want metadata value", got)
	}

	if got := extract(peerCtx("10.0.0.4")); got != "10.0.0.4:4000" {
		t.Errorf("got %q, want peer address fallback", got)
	}
}

func TestMethodsCountSeparatelyPerRPC(t *testing.T) {
	engine := newEngine(t, rategate.WithDefaultConfig(rategate.Config{
		Limit: 1, Window: time.Minute, Strategy: rategate.FixedWindow,
	}))
	interceptor := grpcmw.UnaryServerInterceptor(engine)
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	ctx := peerCtx("10.0.0.3")

	get := &grpc.UnaryServerInfo{FullMethod: "/svc.Users/Get"}
	list := &grpc.UnaryServerInfo{FullMethod: "/svc.Users/List"}

	if _, err := interceptor(ctx, nil, get, handler); err != nil {
		t.Fatal(err)
	}
	if _, err := interceptor(ctx, nil, get, handler); status.Code(err) != codes.ResourceExhausted {
		t.Fatal("second Get should be limited")
	}
	if _, err := interceptor(ctx, nil, list, handler); err != nil {
		t.Error("List has its own counter")
	}
}
