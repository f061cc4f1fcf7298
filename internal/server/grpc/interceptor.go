package grpc

import (
	"context"
	"errors"

	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/history"
	pb "github.com/revrsefr/sable/internal/proto"
	"github.com/revrsefr/sable/internal/server/auth"
	"github.com/revrsefr/sable/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// methodRoles lists the roles allowed to call each method. Methods not
// listed are open; an empty list admits any valid token.
var methodRoles = map[string][]auth.Role{
	pb.HistoryService_ChatHistory_FullMethodName: {},
	pb.HistoryService_Ingest_FullMethodName:      {auth.RoleServer},
	pb.HistoryService_Expire_FullMethodName:      {auth.RoleServer},
	pb.HistoryService_Snapshot_FullMethodName:    {auth.RoleServer},
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	roles, guarded := methodRoles[info.FullMethod]
	if !guarded {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	if len(roles) > 0 && !hasRole(roles, claims.Role) {
		s.logger.Warn(ctx, "role not allowed", "method", info.FullMethod, "subject", claims.Subject, "role", claims.Role)
		return nil, status.Error(codes.PermissionDenied, common.ErrForbiddenRole.Error())
	}

	ctx = context.WithValue(ctx, claimsKey, claims)

	return handler(ctx, req)
}

func hasRole(allowed []auth.Role, r auth.Role) bool {
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if s.limiter == nil || info.FullMethod != pb.HistoryService_ChatHistory_FullMethodName {
		return handler(ctx, req)
	}

	requester, ok := requesterFrom(ctx)
	if !ok {
		return handler(ctx, req)
	}
	if !s.limiter.Allow(string(requester)) {
		metrics.RateLimitedTotal.WithLabelValues(info.FullMethod).Inc()
		return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}

	return handler(ctx, req)
}

func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func requesterFrom(ctx context.Context) (history.UserID, bool) {
	c, ok := claimsFrom(ctx)
	if !ok {
		return "", false
	}
	return history.UserID(c.Subject), true
}
