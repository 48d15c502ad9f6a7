package middlewares

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver decide la IP del cliente. X-Forwarded-For solo cuenta si
// el peer directo es un proxy de confianza; dentro del header se toma el hop
// más a la derecha que no sea de confianza, que es el único que agregó
// alguien de confianza.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver acepta IPs sueltas o CIDRs ("127.0.0.1", "10.0.0.0/8").
// Sin entradas nunca se lee X-Forwarded-For.
func NewClientIPResolver(trusted []string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{}
	for _, raw := range trusted {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			res.trusted = append(res.trusted, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		a = a.Unmap()
		res.trusted = append(res.trusted, netip.PrefixFrom(a, a.BitLen()))
	}
	return res, nil
}

func (c *ClientIPResolver) isTrusted(a netip.Addr) bool {
	if c == nil {
		return false
	}
	a = a.Unmap()
	for _, p := range c.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// Resolve devuelve la IP del cliente para logs y rate limiting.
func (c *ClientIPResolver) Resolve(r *http.Request) string {
	peer := remoteHost(r)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !c.isTrusted(addr) {
		return peer
	}

	hops := forwardedHops(r.Header.Values("X-Forwarded-For"))
	client := addr
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(hops[i])
		if err != nil {
			// Hop ilegible: no se sigue más a la izquierda.
			break
		}
		client = hop.Unmap()
		if !c.isTrusted(client) {
			break
		}
	}
	return client.String()
}

func forwardedHops(values []string) []string {
	var hops []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	return hops
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

type clientIPKey struct{}

// WithClientIP resuelve la IP una vez por request y la deja en el contexto.
// Va antes de WithLogging y WithRateLimit. Un resolver nil usa solo RemoteAddr.
func WithClientIP(res *ClientIPResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithClientIP(r.Context(), res.Resolve(r))))
		})
	}
}

// ContextWithClientIP fija la IP del cliente fuera de un request entrante.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext devuelve la IP resuelta por WithClientIP, o "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func clientIP(r *http.Request) string {
	if ip := ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return remoteHost(r)
}
