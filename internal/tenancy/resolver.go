package tenancy

import (
	"net"
	"net/http"
	"strings"

	"github.com/gosuda/cardvault/internal/domain"
)

const (
	HeaderTenantSlug = "X-Tenant-Slug"
	QueryTenantSlug  = "tenant"
)

// DefaultReservedSubdomains are host labels that never name a tenant.
var DefaultReservedSubdomains = []string{"www", "api", "app", "admin", "static", "assets", "mail"}

// reservedPaths are leading path segments owned by the application itself.
var reservedPaths = map[string]struct{}{
	"api": {}, "healthz": {}, "metrics": {}, "static": {}, "assets": {}, "auth": {}, "docs": {}, "openapi": {},
}

// ResolveInput is the part of a request that may name a tenant.
type ResolveInput struct {
	Host   string
	Path   string
	Header string
	Query  string
}

// Resolver extracts a tenant slug from request signals in priority order:
// subdomain, leading path segment, X-Tenant-Slug header, then the tenant
// query parameter when AllowQuery is set.
type Resolver struct {
	baseDomain string
	reserved   map[string]struct{}
	allowQuery bool
}

// NewResolver builds a Resolver. baseDomain may be empty, in which case the
// first label of any host with three or more labels is treated as the
// subdomain.
func NewResolver(baseDomain string, reservedSubdomains []string, allowQuery bool) *Resolver {
	reserved := make(map[string]struct{}, len(reservedSubdomains))
	for _, s := range reservedSubdomains {
		reserved[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return &Resolver{
		baseDomain: strings.ToLower(strings.Trim(baseDomain, ".")),
		reserved:   reserved,
		allowQuery: allowQuery,
	}
}

func (r *Resolver) FromRequest(req *http.Request) (string, bool) {
	return r.Resolve(ResolveInput{
		Host:   req.Host,
		Path:   req.URL.Path,
		Header: req.Header.Get(HeaderTenantSlug),
		Query:  req.URL.Query().Get(QueryTenantSlug),
	})
}

func (r *Resolver) Resolve(in ResolveInput) (string, bool) {
	if slug, ok := r.fromHost(in.Host); ok {
		return slug, true
	}
	if slug, ok := fromPath(in.Path); ok {
		return slug, true
	}
	if slug := strings.ToLower(strings.TrimSpace(in.Header)); domain.ValidSlug(slug) {
		return slug, true
	}
	if r.allowQuery {
		if slug := strings.ToLower(strings.TrimSpace(in.Query)); domain.ValidSlug(slug) {
			return slug, true
		}
	}
	return "", false
}

func (r *Resolver) fromHost(host string) (string, bool) {
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	var label string
	if r.baseDomain != "" {
		if !strings.HasSuffix(host, "."+r.baseDomain) {
			return "", false
		}
		label = strings.TrimSuffix(host, "."+r.baseDomain)
		if strings.Contains(label, ".") {
			return "", false
		}
	} else {
		parts := strings.Split(host, ".")
		if len(parts) < 3 {
			return "", false
		}
		label = parts[0]
	}

	if _, reserved := r.reserved[label]; reserved {
		return "", false
	}
	if !domain.ValidSlug(label) {
		return "", false
	}
	return label, true
}

func fromPath(path string) (string, bool) {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if _, reserved := reservedPaths[seg]; reserved {
		return "", false
	}
	if !domain.ValidSlug(seg) {
		return "", false
	}
	return seg, true
}
