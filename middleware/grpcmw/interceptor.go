// Package grpcmw provides gRPC server interceptors for the admission engine.
//
// Separated from the middleware package so that importing the plain HTTP
// middleware does not pull in google.golang.org/grpc. The RPC full method
// (e.g. "/pkg.Service/Method") plays the role of the request path, so path
// overrides and exclusions apply to it unchanged; the method slot is fixed
// to "POST", the verb every gRPC request maps to.
//
//	server := grpc.NewServer(
//	    grpc.ChainUnaryInterceptor(grpcmw.UnaryServerInterceptor(engine)),
//	    grpc.ChainStreamInterceptor(grpcmw.StreamServerInterceptor(engine)),
//	)
package grpcmw

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/skanda-dev/rategate"
)

// ClientIDFunc derives the client identity from an RPC context.
type ClientIDFunc func(ctx context.Context) string

// Config holds the interceptor configuration.
type Config struct {
	// Engine makes the admission decisions (required).
	Engine *rategate.Engine

	// ClientID overrides the identity extractor. Default: ClientIDByPeer.
	ClientID ClientIDFunc
}

const grpcMethod = "POST"

// UnaryServerInterceptor creates a unary interceptor with default settings.
func UnaryServerInterceptor(engine *rategate.Engine) grpc.UnaryServerInterceptor {
	return UnaryServerInterceptorWithConfig(Config{Engine: engine})
}

// UnaryServerInterceptorWithConfig creates a unary interceptor with full
// configuration control.
func UnaryServerInterceptorWithConfig(cfg Config) grpc.UnaryServerInterceptor {
	cfg = withDefaults(cfg)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if cfg.Engine.Excluded(info.FullMethod) {
			return handler(ctx, req)
		}

		d, rl := cfg.Engine.Check(ctx, grpcMethod, info.FullMethod, cfg.ClientID(ctx))
		setRateMetadata(ctx, rl, d)

		if !d.Allowed {
			return nil, deniedStatus(d)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor creates a stream interceptor with default settings.
func StreamServerInterceptor(engine *rategate.Engine) grpc.StreamServerInterceptor {
	return StreamServerInterceptorWithConfig(Config{Engine: engine})
}

// StreamServerInterceptorWithConfig creates a stream interceptor with full
// configuration control.
func StreamServerInterceptorWithConfig(cfg Config) grpc.StreamServerInterceptor {
	cfg = withDefaults(cfg)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		if cfg.Engine.Excluded(info.FullMethod) {
			return handler(srv, ss)
		}

		d, rl := cfg.Engine.Check(ctx, grpcMethod, info.FullMethod, cfg.ClientID(ctx))
		setRateMetadata(ctx, rl, d)

		if !d.Allowed {
			return deniedStatus(d)
		}
		return handler(srv, ss)
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Engine == nil {
		panic("rategate/grpcmw: Engine is required")
	}
	if cfg.ClientID == nil {
		cfg.ClientID = ClientIDByPeer
	}
	return cfg
}

// ─── Client identity ─────────────────────────────────────────────────────────

// ClientIDByPeer uses the remote peer address as the client identity.
func ClientIDByPeer(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

// ClientIDByMetadata returns an extractor that reads the given incoming
// metadata key, falling back to the peer address when absent.
func ClientIDByMetadata(key string) ClientIDFunc {
	return func(ctx context.Context) string {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(key); len(vals) > 0 && vals[0] != "" {
				return vals[0]
			}
		}
		return ClientIDByPeer(ctx)
	}
}

// ─── Internals ───────────────────────────────────────────────────────────────

func setRateMetadata(ctx context.Context, cfg rategate.Config, d rategate.Decision) {
	md := metadata.Pairs(
		"x-ratelimit-limit", strconv.FormatInt(cfg.Limit, 10),
		"x-ratelimit-remaining", strconv.FormatInt(d.Remaining, 10),
	)
	if retry := d.RetryAfterSeconds(); retry > 0 {
		md.Set("retry-after", strconv.FormatInt(retry, 10))
	}
	_ = grpc.SetHeader(ctx, md)
}

func deniedStatus(d rategate.Decision) error {
	return status.Errorf(codes.ResourceExhausted,
		"too many requests, retry after %ds", d.RetryAfterSeconds())
}
