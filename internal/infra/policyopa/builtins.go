package policyopa

import "github.com/open-policy-agent/opa/ast"

// Policy bundles are pure deny/allow rules over the input document. Anything
// that can reach the network or the runtime is excluded so a bundle cannot
// turn the gateway into an exfiltration channel.
var allowedBuiltins = map[string]struct{}{
	"abs":            {},
	"ceil":           {},
	"concat":         {},
	"contains":       {},
	"count":          {},
	"eq":             {},
	"equal":          {},
	"endswith":       {},
	"floor":          {},
	"div":            {},
	"format_int":     {},
	"gt":             {},
	"gte":            {},
	"json.marshal":   {},
	"json.unmarshal": {},
	"lower":          {},
	"lt":             {},
	"lte":            {},
	"max":            {},
	"min":            {},
	"minus":          {},
	"mul":            {},
	"neq":            {},
	"object.get":     {},
	"object.remove":  {},
	"object.union":   {},
	"plus":           {},
	"replace":        {},
	"round":          {},
	"sort":           {},
	"split":          {},
	"sprintf":        {},
	"startswith":     {},
	"substring":      {},
	"sum":            {},
	"trim":           {},
	"trim_left":      {},
	"trim_right":     {},
	"upper":          {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
