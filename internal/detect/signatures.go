package detect

import (
	"context"
	"fmt"
	"regexp"
)

// attackFamily is one named group of regular expressions. Patterns are
// fixed and case-insensitive; at most one detection per family per request.
type attackFamily struct {
	tag      string
	patterns []*regexp.Regexp
}

// attackFamilies is the exact catalogue: SQL injection, XSS, path traversal,
// command injection.
var attackFamilies = []attackFamily{
	{
		tag: "sql_injection",
		patterns: compileAll(
			`(?i)\bUNION\b.*\bSELECT\b`,
			`(?i)\bOR\b\s+\d+\s*=\s*\d+`,
			`(?i)';?\s*DROP\s+TABLE`,
			`(?i)--\s*$`,
			`(?i)/\*.*\*/`,
		),
	},
	{
		tag: "xss",
		patterns: compileAll(
			`(?i)<script[^>]*>.*?</script>`,
			`(?i)javascript:`,
			`(?i)onerror\s*=`,
			`(?i)onload\s*=`,
		),
	},
	{
		tag: "path_traversal",
		patterns: compileAll(
			`\.\./`,
			`\.\.\\`,
			`(?i)%2e%2e/`,
			`(?i)%2e%2e\\`,
		),
	},
	{
		tag: "command_injection",
		patterns: compileAll(
			`;\s*\w+`,
			`\|\s*\w+`,
			"`.*`",
			`\$\(.*\)`,
		),
	},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// signatureDetector checks one attack family against the haystack built from
// endpoint + serialized headers.
type signatureDetector struct {
	family   attackFamily
	resolver *ConfigResolver
}

// NewSignatureDetectors returns one Detector per attack family, each capable
// of independently flagging its family on the same request — this is how a
// single compound-attack request can surface more than one Detection while
// every individual Detector still returns at most one.
func NewSignatureDetectors(resolver *ConfigResolver) []Detector {
	out := make([]Detector, 0, len(attackFamilies))
	for _, f := range attackFamilies {
		out = append(out, &signatureDetector{family: f, resolver: resolver})
	}
	return out
}

// Detect implements Detector.
func (d *signatureDetector) Detect(ctx context.Context, rec Record) (*Detection, error) {
	cfg := d.resolver.Resolve(ctx, rec.ApiID).AttackSignatures
	if !cfg.Enabled {
		return nil, nil
	}

	haystack := rec.Endpoint + " " + string(rec.Headers)

	for _, re := range d.family.patterns {
		if re.MatchString(haystack) {
			return &Detection{
				Tag:    d.family.tag,
				Score:  cfg.Weight,
				Reason: fmt.Sprintf("%s signature matched in request", d.family.tag),
				Metadata: map[string]any{
					"pattern": re.String(),
				},
			}, nil
		}
	}

	return nil, nil
}
