package broker

import (
	"fmt"
	"strings"
)

// ReclaimPolicy is the action taken on underlying storage when a service
// instance is deleted.
type ReclaimPolicy string

const (
	// ReclaimDelete removes the resource and its contents.
	ReclaimDelete ReclaimPolicy = "Delete"
	// ReclaimRetain leaves the resource untouched for the operator.
	ReclaimRetain ReclaimPolicy = "Retain"
	// ReclaimRecycle wipes the resource contents, then removes it.
	ReclaimRecycle ReclaimPolicy = "Recycle"
)

// ParseReclaimPolicy validates a policy name, case-insensitively.
func ParseReclaimPolicy(raw string) (ReclaimPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delete":
		return ReclaimDelete, true
	case "retain":
		return ReclaimRetain, true
	case "recycle":
		return ReclaimRecycle, true
	default:
		return "", false
	}
}

// PolicyViolationReason distinguishes the ways a reclaim-policy request can
// be rejected; callers use it to produce distinct diagnostics.
type PolicyViolationReason int

const (
	// ReasonMalformedPolicy: the reclaim-policy value does not parse.
	ReasonMalformedPolicy PolicyViolationReason = iota
	// ReasonMalformedAllowedList: the allowed-reclaim-policies value does
	// not parse.
	ReasonMalformedAllowedList
	// ReasonNotAllowed: the policy parses but is not in the allowed set.
	ReasonNotAllowed
)

// PolicyViolation is the failure result of reclaim-policy validation. It is
// an explicit result checked by callers before any external mutation.
type PolicyViolation struct {
	Reason PolicyViolationReason
	Detail string
}

func (v *PolicyViolation) Error() string {
	switch v.Reason {
	case ReasonMalformedPolicy:
		return "invalid reclaim-policy: " + v.Detail
	case ReasonMalformedAllowedList:
		return "invalid allowed-reclaim-policies: " + v.Detail
	default:
		return "reclaim policy is not allowed: " + v.Detail
	}
}

// ResolveReclaimPolicy extracts and validates the reclaim policy from merged
// parameters. Absent reclaim-policy falls back to def; an absent
// allowed-reclaim-policies list means unrestricted. A nil violation means the
// returned policy may be used.
func ResolveReclaimPolicy(params map[string]interface{}, def ReclaimPolicy) (ReclaimPolicy, *PolicyViolation) {
	policy := def
	if raw, ok := params[ParamReclaimPolicy]; ok {
		name, ok := raw.(string)
		if !ok {
			return "", &PolicyViolation{Reason: ReasonMalformedPolicy, Detail: fmt.Sprintf("%v", raw)}
		}
		parsed, ok := ParseReclaimPolicy(name)
		if !ok {
			return "", &PolicyViolation{Reason: ReasonMalformedPolicy, Detail: name}
		}
		policy = parsed
	}

	allowed, violation := allowedReclaimPolicies(params)
	if violation != nil {
		return "", violation
	}
	if allowed == nil {
		return policy, nil
	}
	for _, a := range allowed {
		if a == policy {
			return policy, nil
		}
	}
	return "", &PolicyViolation{
		Reason: ReasonNotAllowed,
		Detail: fmt.Sprintf("%s is not one of the allowed policies %v", policy, allowed),
	}
}

// allowedReclaimPolicies parses the allowed-reclaim-policies parameter, which
// may be a list of strings or a comma-joined string. Nil means unrestricted.
func allowedReclaimPolicies(params map[string]interface{}) ([]ReclaimPolicy, *PolicyViolation) {
	raw, ok := params[ParamAllowedReclaimPolicies]
	if !ok || raw == nil {
		return nil, nil
	}

	var names []string
	switch v := raw.(type) {
	case string:
		names = strings.Split(v, ",")
	case []string:
		names = v
	case []interface{}:
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, &PolicyViolation{Reason: ReasonMalformedAllowedList, Detail: fmt.Sprintf("%v", item)}
			}
			names = append(names, name)
		}
	default:
		return nil, &PolicyViolation{Reason: ReasonMalformedAllowedList, Detail: fmt.Sprintf("%v", raw)}
	}

	policies := make([]ReclaimPolicy, 0, len(names))
	for _, name := range names {
		policy, ok := ParseReclaimPolicy(name)
		if !ok {
			return nil, &PolicyViolation{Reason: ReasonMalformedAllowedList, Detail: name}
		}
		policies = append(policies, policy)
	}
	return policies, nil
}
