package syncx

import (
	"strconv"
	"time"
)

// GetString safely extracts a string value from a map
func GetString(m map[string]any, k string) (string, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.(string); ok2 {
			return s, true
		}
	}
	return "", false
}

// AsRecord narrows an arbitrary decoded JSON value to an object.
// Anything that is not an object (nil, arrays, scalars) becomes an
// empty map so snapshot handling never has to nil-check.
func AsRecord(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// ParseTimeToMs converts a wire timestamp to Unix milliseconds.
// Accepts RFC3339 (with or without sub-second precision) and numeric
// milliseconds as a string. Empty or unparseable input returns false.
func ParseTimeToMs(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().UnixMilli(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().UnixMilli(), true
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, true
	}

	return 0, false
}

// LocalIDString normalizes a device-local identifier from decoded JSON.
// Devices send localId as either a string or a number; the server stores
// it as text. Returns nil when absent or of an unexpected type.
func LocalIDString(v any) *string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return &t
	case float64:
		s := strconv.FormatInt(int64(t), 10)
		return &s
	}
	return nil
}

// NormalizeData embeds sync metadata into an entity snapshot so a
// full-fidelity copy travels with the document: the resolved cloudId,
// the server version, and refreshed sync timestamps. The client's own
// lastModifiedAt is preserved when it supplied one.
func NormalizeData(data map[string]any, cloudID string, version int) map[string]any {
	out := make(map[string]any, len(data)+5)
	for k, v := range data {
		out[k] = v
	}
	out["cloudId"] = cloudID
	out["version"] = version
	out["isDirty"] = false
	out["syncedAt"] = RFC3339(NowMs())
	if _, ok := GetString(data, "lastModifiedAt"); !ok {
		out["lastModifiedAt"] = RFC3339(NowMs())
	}
	return out
}

// ReadLastModified extracts the embedded lastModifiedAt from a snapshot.
// Returns empty string when the snapshot carries none.
func ReadLastModified(data map[string]any) string {
	s, _ := GetString(data, "lastModifiedAt")
	return s
}

// NextVersion computes the version assigned by an accepted update:
// past both the client's basis and the stored version, so two devices
// editing from the same base each land on a distinct higher version.
func NextVersion(clientVersion, serverVersion int) int {
	if clientVersion > serverVersion {
		return clientVersion + 1
	}
	return serverVersion + 1
}
