package keys

import (
	"strings"

	apperr "github.com/yungbote/blockstore/internal/pkg/errors"
)

// The key-type table is fixed at init and read-only afterwards; Parse
// dispatches on the namespace prefix before the first ':'.
var parsers = map[string]func(raw, payload string) (Key, error){
	CourseNamespace:     parseCoursePayload,
	UsageNamespace:      parseUsagePayload,
	DefinitionNamespace: parseDefinitionPayload,
	AssetNamespace:      parseAssetPayload,
}

func invalid(input, reason string) error {
	return &apperr.InvalidKeyFormatError{Input: input, Reason: reason}
}

// Parse turns a serialized key into its typed form. Both canonical
// (namespace-prefixed) and deprecated (slash-separated, i4x://) forms are
// accepted; the deprecated flag on the result records which one was seen.
func Parse(s string) (Key, error) {
	if s == "" {
		return nil, invalid(s, "empty input")
	}
	if strings.HasPrefix(s, "i4x://") {
		return parseI4X(s)
	}
	if ns, payload, ok := strings.Cut(s, ":"); ok {
		p, registered := parsers[ns]
		if !registered {
			return nil, invalid(s, "unknown namespace "+ns)
		}
		return p(s, payload)
	}
	// Legacy ORG/COURSE/RUN course keys have no namespace marker.
	if strings.Count(s, "/") == 2 {
		return parseSlashCourse(s)
	}
	return nil, invalid(s, "no namespace prefix")
}

// ParseCourseKey parses and asserts a CourseKey.
func ParseCourseKey(s string) (CourseKey, error) {
	k, err := Parse(s)
	if err != nil {
		return CourseKey{}, err
	}
	ck, ok := k.(CourseKey)
	if !ok {
		return CourseKey{}, invalid(s, "not a course key")
	}
	return ck, nil
}

// ParseUsageKey parses and asserts a UsageKey.
func ParseUsageKey(s string) (UsageKey, error) {
	k, err := Parse(s)
	if err != nil {
		return UsageKey{}, err
	}
	uk, ok := k.(UsageKey)
	if !ok {
		return UsageKey{}, invalid(s, "not a usage key")
	}
	return uk, nil
}

func validField(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '~' || r == '-':
		default:
			return false
		}
	}
	return true
}

// splitPayload separates the leading positional fields from trailing
// name@value decorations.
func splitPayload(payload string) (positional []string, decorations map[string]string, order []string) {
	decorations = map[string]string{}
	for _, tok := range strings.Split(payload, "+") {
		if name, val, ok := strings.Cut(tok, "@"); ok && validField(name) {
			decorations[name] = val
			order = append(order, name)
			continue
		}
		positional = append(positional, tok)
	}
	return positional, decorations, order
}

func parseCourseFields(raw string, positional []string, decorations map[string]string) (CourseKey, error) {
	if len(positional) != 3 {
		return CourseKey{}, invalid(raw, "want org+course+run")
	}
	names := [3]string{"org", "course", "run"}
	for i, f := range positional {
		if !validField(f) {
			return CourseKey{}, invalid(raw, "missing or malformed field "+names[i])
		}
	}
	k := CourseKey{Org: positional[0], Course: positional[1], Run: positional[2]}
	if b, ok := decorations["branch"]; ok {
		if !validField(b) {
			return CourseKey{}, invalid(raw, "malformed branch")
		}
		k.Branch = b
	}
	if v, ok := decorations["version"]; ok {
		if !validField(v) {
			return CourseKey{}, invalid(raw, "malformed version")
		}
		k.Version = v
	}
	return k, nil
}

func parseCoursePayload(raw, payload string) (Key, error) {
	positional, decorations, _ := splitPayload(payload)
	for name := range decorations {
		if name != "branch" && name != "version" {
			return nil, invalid(raw, "unexpected decoration "+name)
		}
	}
	return parseCourseFields(raw, positional, decorations)
}

func parseUsagePayload(raw, payload string) (Key, error) {
	positional, decorations, _ := splitPayload(payload)
	for name := range decorations {
		switch name {
		case "branch", "version", "type", "block":
		default:
			return nil, invalid(raw, "unexpected decoration "+name)
		}
	}
	course, err := parseCourseFields(raw, positional, decorations)
	if err != nil {
		return nil, err
	}
	blockType, ok := decorations["type"]
	if !ok || !validField(blockType) {
		return nil, invalid(raw, "missing or malformed field type")
	}
	blockID, ok := decorations["block"]
	if !ok || !validField(blockID) {
		return nil, invalid(raw, "missing or malformed field block")
	}
	return UsageKey{Course: course, BlockType: blockType, BlockID: blockID}, nil
}

func parseDefinitionPayload(raw, payload string) (Key, error) {
	positional, decorations, _ := splitPayload(payload)
	if len(positional) != 1 || !validField(positional[0]) {
		return nil, invalid(raw, "missing or malformed field definition_id")
	}
	blockType, ok := decorations["type"]
	if !ok || !validField(blockType) {
		return nil, invalid(raw, "missing or malformed field type")
	}
	return DefinitionKey{BlockType: blockType, DefinitionID: positional[0]}, nil
}

func parseAssetPayload(raw, payload string) (Key, error) {
	positional, decorations, _ := splitPayload(payload)
	course, err := parseCourseFields(raw, positional, nil)
	if err != nil {
		return nil, err
	}
	assetType, ok := decorations["type"]
	if !ok || !validField(assetType) {
		return nil, invalid(raw, "missing or malformed field type")
	}
	path, ok := decorations["asset"]
	if !ok || path == "" {
		return nil, invalid(raw, "missing field asset")
	}
	return AssetKey{Course: course, AssetType: assetType, Path: path}, nil
}

func parseSlashCourse(s string) (Key, error) {
	parts := strings.Split(s, "/")
	names := [3]string{"org", "course", "run"}
	for i, f := range parts {
		if !validField(f) {
			return nil, invalid(s, "missing or malformed field "+names[i])
		}
	}
	return CourseKey{Org: parts[0], Course: parts[1], Run: parts[2], deprecated: true}, nil
}

func parseI4X(s string) (Key, error) {
	rest := strings.TrimPrefix(s, "i4x://")
	parts := strings.Split(rest, "/")
	if len(parts) != 4 {
		return nil, invalid(s, "want i4x://org/course/type/id")
	}
	names := [4]string{"org", "course", "type", "id"}
	for i, f := range parts {
		if !validField(f) {
			return nil, invalid(s, "missing or malformed field "+names[i])
		}
	}
	course := CourseKey{Org: parts[0], Course: parts[1], deprecated: true}
	return UsageKey{Course: course, BlockType: parts[2], BlockID: parts[3]}, nil
}
