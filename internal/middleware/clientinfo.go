package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"ecofund/internal/domain"
)

type clientContextKey struct{}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

const maxUserAgentLen = 512

// ClientInfo records the caller's network details for donation metadata.
func ClientInfo(lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := r.UserAgent()
			if len(ua) > maxUserAgentLen {
				ua = ua[:maxUserAgentLen]
			}
			meta := domain.DonationMetadata{
				IPAddress:      ClientIP(r),
				UserAgent:      ua,
				ReferralSource: referralSource(r),
				Country:        ResolveCountry(r, lookup),
			}
			ctx := context.WithValue(r.Context(), clientContextKey{}, meta)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientFromContext returns the metadata stored by ClientInfo.
func ClientFromContext(ctx context.Context) domain.DonationMetadata {
	meta, _ := ctx.Value(clientContextKey{}).(domain.DonationMetadata)
	return meta
}

func referralSource(r *http.Request) string {
	if ref := strings.TrimSpace(r.URL.Query().Get("ref")); ref != "" {
		return ref
	}
	return strings.TrimSpace(r.Header.Get("X-Referral-Source"))
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ResolveCountry resolves a best-effort ISO country code for the request.
// Edge proxy headers win over the GeoIP lookup.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range []string{"CF-IPCountry", "X-Country-Code", "X-Appengine-Country"} {
		if val := strings.TrimSpace(r.Header.Get(key)); len(val) == 2 {
			return strings.ToUpper(val)
		}
	}
	if lookup == nil {
		return ""
	}
	ip := ClientIP(r)
	if net.ParseIP(ip) == nil {
		return ""
	}
	country, err := lookup(ip)
	if err != nil {
		return ""
	}
	return strings.ToUpper(country)
}
