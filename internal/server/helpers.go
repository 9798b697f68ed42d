package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strings"
)

// maxBodyBytes caps every JSON request body the API accepts.
const maxBodyBytes = 64 << 10

var errTrailingData = errors.New("request body holds more than one JSON value")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeMessage writes the {"message": ...} envelope used by every
// non-resource response.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeMessage(w, status, message)
}

// decodeJSON reads exactly one JSON object into dst. Unknown fields,
// trailing values and bodies over maxBodyBytes are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// parseTrustedProxies accepts bare addresses and CIDR prefixes. Entries
// that parse as neither are skipped.
func parseTrustedProxies(values []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if addr, err := netip.ParseAddr(v); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		if prefix, err := netip.ParsePrefix(v); err == nil {
			prefixes = append(prefixes, prefix.Masked())
		}
	}
	return prefixes
}

func trusted(addr netip.Addr, proxies []netip.Prefix) bool {
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP resolves the caller's address for rate limiting and auditing.
// X-Forwarded-For is walked right to left through trusted proxies only, so
// a client cannot pick its own address by prepending hops.
func clientIP(r *http.Request, proxies []netip.Prefix) string {
	remote, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	hop := remote.Addr().Unmap()
	if !trusted(hop, proxies) {
		return hop.String()
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return addr.Unmap().String()
		}
		return hop.String()
	}

	entries := strings.Split(xff, ",")
	for i := len(entries) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(entries[i]))
		if err != nil {
			break
		}
		hop = addr.Unmap()
		if !trusted(hop, proxies) {
			break
		}
	}
	return hop.String()
}
