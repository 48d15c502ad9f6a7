package rate

import "context"

// All exige que todos los limiters admitan (ej: 10/s y 60/min). Cuenta el hit
// en cada uno y devuelve el rechazo con mayor RetryAfter.
type All []Limiter

func (a All) Allow(ctx context.Context, key string) (Result, error) {
	var out Result
	out.Allowed = true
	first := true
	for _, l := range a {
		res, err := l.Allow(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if first || res.Remaining < out.Remaining {
			out.Remaining = res.Remaining
			out.WindowTTL = res.WindowTTL
			out.CurrentHits = res.CurrentHits
			first = false
		}
		if !res.Allowed {
			out.Allowed = false
			if res.RetryAfter > out.RetryAfter {
				out.RetryAfter = res.RetryAfter
			}
		}
	}
	return out, nil
}
