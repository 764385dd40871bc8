package deps

import (
	"fmt"
	"strings"
)

// Requirement defines an external integration AirDesk can use and the
// setting that enables it.
type Requirement struct {
	Name        string
	Setting     string
	Value       string
	Description string
	Optional    bool
}

// Status reports whether an integration is configured.
type Status struct {
	Name        string
	Setting     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckSettings evaluates the provided requirements and reports which
// integrations have the setting they need.
func CheckSettings(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		setting := strings.TrimSpace(req.Setting)
		status := Status{
			Name:        req.Name,
			Setting:     setting,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if strings.TrimSpace(req.Value) == "" {
			status.Detail = fmt.Sprintf("%s not set", setting)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required integrations that are not configured.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
