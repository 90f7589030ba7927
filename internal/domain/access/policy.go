// Package access edits CloudSearch domain access policies.
package access

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"slices"
)

const (
	policyVersion = "2012-10-17"
	sourceIPKey   = "aws:SourceIp"
)

// Scope is the kind of access granted to an address.
type Scope string

// Access scopes.
const (
	ScopeSearch   Scope = "search"
	ScopeDocument Scope = "document"
)

func (s Scope) sid() string { return "csindex_" + string(s) }

func (s Scope) actions() []string {
	if s == ScopeDocument {
		return []string{"cloudsearch:document"}
	}
	return []string{"cloudsearch:search", "cloudsearch:suggest"}
}

// Statement is one IAM policy statement. Fields this package does not edit are
// kept as raw JSON so foreign statements survive a round trip.
type Statement struct {
	Sid       string                                `json:"Sid,omitempty"`
	Effect    string                                `json:"Effect"`
	Principal json.RawMessage                       `json:"Principal,omitempty"`
	Action    json.RawMessage                       `json:"Action,omitempty"`
	Condition map[string]map[string]json.RawMessage `json:"Condition,omitempty"`
}

// Policy is a domain access policy document.
type Policy struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Parse decodes a policy. An empty document yields an empty policy.
func Parse(raw string) (Policy, error) {
	if raw == "" {
		return Policy{Version: policyVersion}, nil
	}
	var p Policy
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Policy{}, fmt.Errorf("parse access policy: %w", err)
	}
	if p.Version == "" {
		p.Version = policyVersion
	}
	return p, nil
}

// String encodes the policy.
func (p Policy) String() string {
	raw, err := json.Marshal(p)
	if err != nil {
		// Every field is plain JSON; Marshal cannot fail here.
		panic(err)
	}
	return string(raw)
}

// NormalizeAddress turns an IP or CIDR into CIDR notation.
func NormalizeAddress(addr string) (string, error) {
	if prefix, err := netip.ParsePrefix(addr); err == nil {
		return prefix.Masked().String(), nil
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return "", fmt.Errorf("invalid ip address %q", addr)
	}
	return netip.PrefixFrom(ip, ip.BitLen()).String(), nil
}

// Allow grants scope to addr and reports whether the policy changed.
func (p *Policy) Allow(scope Scope, addr string) (bool, error) {
	cidr, err := NormalizeAddress(addr)
	if err != nil {
		return false, err
	}

	for i := range p.Statement {
		st := &p.Statement[i]
		if st.Sid != scope.sid() {
			continue
		}
		ips, err := st.sourceIPs()
		if err != nil {
			return false, err
		}
		if slices.Contains(ips, cidr) {
			return false, nil
		}
		st.setSourceIPs(append(ips, cidr))
		return true, nil
	}

	st := Statement{
		Sid:       scope.sid(),
		Effect:    "Allow",
		Principal: json.RawMessage(`"*"`),
	}
	st.Action, _ = json.Marshal(scope.actions())
	st.setSourceIPs([]string{cidr})
	p.Statement = append(p.Statement, st)
	return true, nil
}

// Allowed lists the addresses granted scope.
func (p Policy) Allowed(scope Scope) []string {
	for _, st := range p.Statement {
		if st.Sid == scope.sid() {
			ips, _ := st.sourceIPs()
			return ips
		}
	}
	return nil
}

// sourceIPs reads aws:SourceIp, which IAM allows as a string or a list.
func (st Statement) sourceIPs() ([]string, error) {
	raw, ok := st.Condition["IpAddress"][sourceIPKey]
	if !ok {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("statement %s: malformed %s", st.Sid, sourceIPKey)
	}
	return []string{one}, nil
}

func (st *Statement) setSourceIPs(ips []string) {
	raw, _ := json.Marshal(ips)
	if st.Condition == nil {
		st.Condition = map[string]map[string]json.RawMessage{}
	}
	if st.Condition["IpAddress"] == nil {
		st.Condition["IpAddress"] = map[string]json.RawMessage{}
	}
	st.Condition["IpAddress"][sourceIPKey] = raw
}
