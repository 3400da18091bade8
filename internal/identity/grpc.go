package identity

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-dashboard/internal/middleware"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/store"
)

const (
	ServiceName  = "clinic.v1.IdentityService"
	WhoAmIMethod = "/" + ServiceName + "/WhoAmI"
)

// IdentityServer answers WhoAmI for the doctor named by the verified token.
// Messages are well-known protobuf types so no generated code is needed.
type IdentityServer interface {
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinic/v1/identity.proto",
}

func whoAmIHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WhoAmIMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&serviceDesc, srv)
}

type DoctorLookup interface {
	DoctorByID(ctx context.Context, id int64) (*model.Doctor, error)
}

// Service implements IdentityServer on top of the doctor store. It expects the
// middleware.Auth interceptor to have verified the token.
type Service struct {
	doctors DoctorLookup
}

func NewService(doctors DoctorLookup) *Service {
	return &Service{doctors: doctors}
}

func (s *Service) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no claims")
	}
	d, err := s.doctors.DoctorByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "doctor not found")
	}
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	out, err := structpb.NewStruct(map[string]any{
		"id":    d.ID,
		"name":  d.Name,
		"email": d.Email,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// GRPCResolver resolves tokens through the identity service.
type GRPCResolver struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// DialGRPC connects to the identity service at addr (e.g. "localhost:50051").
func DialGRPC(addr string, opts ...grpc.DialOption) (*GRPCResolver, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity dial: %w", err)
	}
	return &GRPCResolver{cc: conn, conn: conn}, nil
}

func NewGRPCResolver(cc grpc.ClientConnInterface) *GRPCResolver {
	return &GRPCResolver{cc: cc}
}

func (r *GRPCResolver) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func (r *GRPCResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	out := new(structpb.Struct)
	if err := r.cc.Invoke(ctx, WhoAmIMethod, &emptypb.Empty{}, out); err != nil {
		return Identity{}, fmt.Errorf("identity: whoami: %w", err)
	}

	fields := out.GetFields()
	id := fields["id"].GetNumberValue()
	if id <= 0 || id != math.Trunc(id) {
		return Identity{}, ErrNoIdentity
	}
	return Identity{
		ID:    int64(id),
		Name:  fields["name"].GetStringValue(),
		Email: fields["email"].GetStringValue(),
	}, nil
}
