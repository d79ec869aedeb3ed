package access

import (
	"fmt"
	"strings"
)

// Sensitivity is a document's classification tag. The set is closed.
type Sensitivity string

const (
	SensitivityPublic     Sensitivity = "public"
	SensitivityInternal   Sensitivity = "internal"
	SensitivityPrivileged Sensitivity = "privileged"
	SensitivityDiscovery  Sensitivity = "discovery"
)

var Sensitivities = []Sensitivity{
	SensitivityPublic,
	SensitivityInternal,
	SensitivityPrivileged,
	SensitivityDiscovery,
}

func (s Sensitivity) String() string { return string(s) }

func (s Sensitivity) Valid() bool {
	switch s {
	case SensitivityPublic, SensitivityInternal, SensitivityPrivileged, SensitivityDiscovery:
		return true
	default:
		return false
	}
}

func ParseSensitivity(raw string) (Sensitivity, error) {
	s := Sensitivity(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown sensitivity %q", raw)
	}
	return s, nil
}
