package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	jwtx "github.com/kateeridumb/Library/internal/jwt"
)

type ctxKey struct{}

func identityFromCtx(ctx context.Context) (jwtx.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(jwtx.Identity)
	return id, ok
}

func TestTransport_AttachesBridgeToken(t *testing.T) {
	signer, err := jwtx.NewSigner(jwtx.Config{Key: "bridge-test-key-0123456789abcdef", Issuer: "LibraryMPT", Audience: "LibraryMPT.Api"})
	require.NoError(t, err)

	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: New(nil, signer, identityFromCtx)}

	// anónimo: sin header
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	ctx := context.WithValue(context.Background(), ctxKey{}, jwtx.Identity{UserID: 9, Username: "ann", Role: "Student"})
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, req.Header.Get("Authorization"), "original request must not be mutated")

	require.Len(t, got, 2)
	require.Empty(t, got[0])
	require.True(t, strings.HasPrefix(got[1], "Bearer "))

	claims, err := signer.Validate(strings.TrimPrefix(got[1], "Bearer "), jwtx.PurposeBridge)
	require.NoError(t, err)
	require.Equal(t, int64(9), claims.UserID)
	require.Equal(t, "Student", claims.Role())
}

func TestTransport_FreshTokenPerCall(t *testing.T) {
	signer, err := jwtx.NewSigner(jwtx.Config{Key: "bridge-test-key-0123456789abcdef"})
	require.NoError(t, err)

	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: New(http.DefaultTransport, signer, identityFromCtx)}
	ctx := context.WithValue(context.Background(), ctxKey{}, jwtx.Identity{UserID: 1, Username: "a", Role: "Student"})
	for i := 0; i < 2; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	require.Len(t, got, 2)
	require.NotEqual(t, got[0], got[1])
}
