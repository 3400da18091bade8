package grpcweb

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-dashboard/internal/auth"
	"clinic-dashboard/internal/identity"
	"clinic-dashboard/internal/middleware"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/store"
)

const secret = "bridge-secret"

type doctors map[int64]*model.Doctor

func (d doctors) DoctorByID(_ context.Context, id int64) (*model.Doctor, error) {
	if doc, ok := d[id]; ok {
		return doc, nil
	}
	return nil, store.ErrNotFound
}

func newBridge(t *testing.T) *httptest.Server {
	t.Helper()
	hs := httptest.NewServer(New(dialIdentity(t), nil, identity.WhoAmIMethod).Handler())
	t.Cleanup(hs.Close)
	return hs
}

// dialIdentity serves the identity service over bufconn behind the given
// interceptors plus the doctor auth check.
func dialIdentity(t *testing.T, interceptors ...grpc.UnaryServerInterceptor) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	chain := append(interceptors, middleware.Auth(secret, model.RoleDoctor))
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(chain...))
	identity.RegisterIdentityServer(srv, identity.NewService(doctors{
		4: {ID: 4, Name: "Dr. Lin", Email: "lin@clinic.test"},
	}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func post(t *testing.T, url, token string, body []byte) []byte {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/grpc-web+proto")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return out
}

// frames splits a gRPC-Web response into data and trailer payloads.
func frames(t *testing.T, b []byte) (data []byte, trailer string) {
	t.Helper()
	for len(b) > 0 {
		require.GreaterOrEqual(t, len(b), 5)
		n := int(binary.BigEndian.Uint32(b[1:5]))
		require.GreaterOrEqual(t, len(b), 5+n)
		if b[0] == frameTrailer {
			trailer = string(b[5 : 5+n])
		} else {
			data = b[5 : 5+n]
		}
		b = b[5+n:]
	}
	return data, trailer
}

func TestBridgeWhoAmI(t *testing.T) {
	hs := newBridge(t)
	tok, err := auth.MakeToken(4, model.RoleDoctor, secret, time.Hour)
	require.NoError(t, err)

	data, trailer := frames(t, post(t, hs.URL+identity.WhoAmIMethod, tok, frame(frameData, nil)))
	assert.Equal(t, "grpc-status:0\r\n", trailer)

	var out structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &out))
	assert.Equal(t, "Dr. Lin", out.GetFields()["name"].GetStringValue())
	assert.Equal(t, float64(4), out.GetFields()["id"].GetNumberValue())
}

func TestBridgeErrors(t *testing.T) {
	hs := newBridge(t)

	tests := []struct {
		name   string
		path   string
		body   []byte
		status string
	}{
		{"no token", identity.WhoAmIMethod, frame(frameData, nil), "grpc-status:16"},
		{"unlisted method", "/clinic.v1.IdentityService/Other", frame(frameData, nil), "grpc-status:12"},
		{"short body", identity.WhoAmIMethod, []byte{0, 0}, "grpc-status:3"},
		{"truncated frame", identity.WhoAmIMethod, []byte{0, 0, 0, 0, 9, 1}, "grpc-status:3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, trailer := frames(t, post(t, hs.URL+tt.path, "", tt.body))
			assert.Empty(t, data)
			assert.Contains(t, trailer, tt.status+"\r\n")
		})
	}
}

func TestBridgeRejectsPlainRequests(t *testing.T) {
	hs := newBridge(t)

	resp, err := http.Post(hs.URL+identity.WhoAmIMethod, "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, hs.URL+identity.WhoAmIMethod, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dash.local")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://dash.local", resp.Header.Get("Access-Control-Allow-Origin"))
}

// asLoopback makes bufconn calls look like they come from the local bridge,
// as they do in production.
func asLoopback(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	p := &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50051}}
	return next(peer.NewContext(ctx, p), req)
}

func TestBridgeKeepsClientsInSeparateBuckets(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 1)
	defer rl.Close()
	h := New(dialIdentity(t, asLoopback, middleware.RateLimit(rl)), nil, identity.WhoAmIMethod).Handler()

	tok, err := auth.MakeToken(4, model.RoleDoctor, secret, time.Hour)
	require.NoError(t, err)

	call := func(remote string) string {
		req := httptest.NewRequest(http.MethodPost, identity.WhoAmIMethod, bytes.NewReader(frame(frameData, nil)))
		req.RemoteAddr = remote
		req.Header.Set("Content-Type", "application/grpc-web+proto")
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		_, trailer := frames(t, rec.Body.Bytes())
		return trailer
	}

	assert.Equal(t, "grpc-status:0\r\n", call("10.0.0.1:40000"))
	assert.Contains(t, call("10.0.0.1:40001"), "grpc-status:8\r\n")
	assert.Equal(t, "grpc-status:0\r\n", call("10.0.0.2:40000"))
}
