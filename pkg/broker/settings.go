package broker

// Parameter keys shared between provision requests and catalog service
// settings.
const (
	ParamQuota                  = "quota"
	ParamQuotaLimit             = "limit"
	ParamQuotaWarn              = "warn"
	ParamRetention              = "retention"
	ParamDefaultRetention       = "default-retention"
	ParamReclaimPolicy          = "reclaim-policy"
	ParamAllowedReclaimPolicies = "allowed-reclaim-policies"
	ParamBaseURL                = "base-url"
	ParamUseSSL                 = "use-ssl"
	ParamFileAccessible         = "file-accessible"
	ParamEncrypted              = "encrypted"
	ParamCompliance             = "compliance-enabled"
	ParamStaleAllowed           = "is-stale-allowed"
	ParamAccessDuringOutage     = "access-during-outage"
)

// MergeParameters folds plan settings and then service settings into params,
// overwriting whole values for any key they define. Settings come from the
// catalog and are forced by the administrator, so they always win over
// client-supplied parameters. The input map is mutated in place and returned;
// a nil params allocates a fresh map.
func MergeParameters(params map[string]interface{}, planSettings, serviceSettings map[string]interface{}) map[string]interface{} {
	if params == nil {
		params = map[string]interface{}{}
	}
	for k, v := range planSettings {
		params[k] = v
	}
	for k, v := range serviceSettings {
		params[k] = v
	}
	return params
}

// intValue coerces the numeric types that YAML and JSON decoding produce.
func intValue(raw interface{}, def int) int {
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func int64Value(raw interface{}, def int64) int64 {
	switch v := raw.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return def
	}
}

func boolParam(params map[string]interface{}, key string) bool {
	v, ok := params[key].(bool)
	return ok && v
}

func stringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// quotaSettings extracts the quota block from merged parameters. Absent
// limit or warn values default to -1 (unset).
func quotaSettings(params map[string]interface{}) (limit, warn int, present bool) {
	raw, ok := params[ParamQuota]
	if !ok || raw == nil {
		return -1, -1, false
	}
	quota := toStringMap(raw)
	if quota == nil {
		return -1, -1, false
	}
	return intValue(quota[ParamQuotaLimit], -1), intValue(quota[ParamQuotaWarn], -1), true
}

// retentionClasses extracts the retention block: a mapping of class name to
// period in seconds, with -1 meaning "delete the class".
func retentionClasses(params map[string]interface{}) (map[string]int64, bool) {
	raw, ok := params[ParamRetention]
	if !ok || raw == nil {
		return nil, false
	}
	m := toStringMap(raw)
	if m == nil {
		return nil, false
	}
	classes := make(map[string]int64, len(m))
	for name, period := range m {
		classes[name] = int64Value(period, -1)
	}
	return classes, true
}

// toStringMap normalizes the map shapes produced by JSON and YAML decoders.
func toStringMap(raw interface{}) map[string]interface{} {
	switch m := raw.(type) {
	case map[string]interface{}:
		return m
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			if key, ok := k.(string); ok {
				out[key] = v
			}
		}
		return out
	case map[string]int:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	default:
		return nil
	}
}
