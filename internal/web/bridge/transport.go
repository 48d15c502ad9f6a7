// Package bridge adjunta la identidad de la sesión web a las llamadas a la API.
package bridge

import (
	"context"
	"fmt"
	"net/http"

	jwtx "github.com/kateeridumb/Library/internal/jwt"
)

// IdentityFunc extrae la identidad autenticada del contexto del request saliente.
type IdentityFunc func(ctx context.Context) (jwtx.Identity, bool)

// Transport firma un bridge token por llamada. No guarda estado ni cachea tokens.
type Transport struct {
	Base     http.RoundTripper
	Signer   *jwtx.Signer
	Identity IdentityFunc
}

func New(base http.RoundTripper, signer *jwtx.Signer, identity IdentityFunc) *Transport {
	return &Transport{Base: base, Signer: signer, Identity: identity}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Identity == nil || t.Signer == nil {
		return t.base().RoundTrip(req)
	}
	id, ok := t.Identity(req.Context())
	if !ok {
		return t.base().RoundTrip(req)
	}
	tok, err := t.Signer.IssueBridge(id)
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("bridge: issue token: %w", err)
	}
	// RoundTripper no debe mutar el request original
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+tok)
	return t.base().RoundTrip(out)
}
