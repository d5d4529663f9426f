// Package trust classifies source domains into trust tiers. The registry
// is immutable after construction; lookups are pure.
package trust

import (
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Trust scores per tier. Domains absent from the registry score 0.2.
const (
	Tier1Score   = 1.0
	Tier2Score   = 0.7
	Tier3Score   = 0.5
	UnknownScore = 0.2
)

// Domain is one registry entry.
type Domain struct {
	Domain string `yaml:"domain"`
	Tier   int    `yaml:"tier"`
	Name   string `yaml:"name"`
}

// builtinDomains is the static allowlist. Tier 1 = authoritative government
// and national listing sources, tier 2 = reputable secondary platforms,
// tier 3 = general real-estate media.
var builtinDomains = []Domain{
	// Tier 1
	{Domain: "zillow.com", Tier: 1, Name: "Zillow"},
	{Domain: "realtor.com", Tier: 1, Name: "Realtor.com"},
	{Domain: "redfin.com", Tier: 1, Name: "Redfin"},
	{Domain: "nar.realtor", Tier: 1, Name: "National Association of Realtors"},
	{Domain: "census.gov", Tier: 1, Name: "U.S. Census Bureau"},
	{Domain: "hud.gov", Tier: 1, Name: "HUD"},
	{Domain: "bls.gov", Tier: 1, Name: "Bureau of Labor Statistics"},
	{Domain: "fhfa.gov", Tier: 1, Name: "Federal Housing Finance Agency"},
	{Domain: "freddiemac.com", Tier: 1, Name: "Freddie Mac"},
	{Domain: "fanniemae.com", Tier: 1, Name: "Fannie Mae"},
	// Tier 2
	{Domain: "bankrate.com", Tier: 2, Name: "Bankrate"},
	{Domain: "nerdwallet.com", Tier: 2, Name: "NerdWallet"},
	{Domain: "wikipedia.org", Tier: 2, Name: "Wikipedia"},
	{Domain: "investopedia.com", Tier: 2, Name: "Investopedia"},
	{Domain: "nahb.org", Tier: 2, Name: "NAHB"},
	{Domain: "mba.org", Tier: 2, Name: "Mortgage Bankers Association"},
	{Domain: "urban.org", Tier: 2, Name: "Urban Institute"},
	// Tier 3
	{Domain: "homes.com", Tier: 3, Name: "Homes.com"},
	{Domain: "trulia.com", Tier: 3, Name: "Trulia"},
	{Domain: "apartments.com", Tier: 3, Name: "Apartments.com"},
	{Domain: "foreclosure.com", Tier: 3, Name: "Foreclosure.com"},
	{Domain: "movoto.com", Tier: 3, Name: "Movoto"},
	{Domain: "realtytrac.com", Tier: 3, Name: "RealtyTrac"},
}

// Registry resolves domains to trust tiers.
type Registry struct {
	domains map[string]Domain
}

// NewRegistry builds a registry from the builtin allowlist.
func NewRegistry() *Registry {
	r := &Registry{domains: make(map[string]Domain, len(builtinDomains))}
	for _, d := range builtinDomains {
		r.domains[d.Domain] = d
	}
	return r
}

// registryFile is the optional YAML override document.
type registryFile struct {
	Domains []Domain `yaml:"domains"`
}

// MergeFile adds (or re-tiers) domains from a YAML file. Intended for
// startup only; the registry is not safe for concurrent mutation.
func (r *Registry) MergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "trust: read registry file")
	}
	var f registryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return eris.Wrap(err, "trust: parse registry file")
	}
	for _, d := range f.Domains {
		if d.Domain == "" {
			continue
		}
		if d.Tier < 1 || d.Tier > 3 {
			return eris.Errorf("trust: domain %q has invalid tier %d", d.Domain, d.Tier)
		}
		r.domains[strings.ToLower(d.Domain)] = d
	}
	return nil
}

// resolve finds the registry entry for a host, walking subdomain labels so
// that en.wikipedia.org matches a wikipedia.org entry.
func (r *Registry) resolve(domain string) (Domain, bool) {
	host := strings.ToLower(domain)
	for host != "" {
		if d, ok := r.domains[host]; ok {
			return d, true
		}
		i := strings.Index(host, ".")
		if i < 0 || !strings.Contains(host[i+1:], ".") {
			break
		}
		host = host[i+1:]
	}
	return Domain{}, false
}

// TierOf returns the tier for a domain and whether the domain is trusted.
func (r *Registry) TierOf(domain string) (int, bool) {
	d, ok := r.resolve(domain)
	if !ok {
		return 0, false
	}
	return d.Tier, true
}

// Trusted reports whether the domain appears in the registry.
func (r *Registry) Trusted(domain string) bool {
	_, ok := r.resolve(domain)
	return ok
}

// DisplayName returns the human-readable name for a domain, or the domain
// itself when unknown.
func (r *Registry) DisplayName(domain string) string {
	if d, ok := r.resolve(domain); ok && d.Name != "" {
		return d.Name
	}
	return domain
}

// AllowedDomains returns every registry domain, sorted, for use as a search
// include filter.
func (r *Registry) AllowedDomains() []string {
	out := make([]string, 0, len(r.domains))
	for d := range r.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// TrustScore maps a tier to its trust score. Tier 0 (unknown) scores 0.2.
func TrustScore(tier int) float64 {
	switch tier {
	case 1:
		return Tier1Score
	case 2:
		return Tier2Score
	case 3:
		return Tier3Score
	default:
		return UnknownScore
	}
}

// ExtractDomain parses the registrable host out of a URL: lowercased,
// port stripped, leading "www." removed. Unparseable URLs yield "".
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
