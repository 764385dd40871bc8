package stage

// Health summarizes the readiness of a workflow stage.
type Health struct {
	Name  string
	Ready bool
	// Degraded marks a ready stage running without an optional
	// collaborator, such as extraction without a language model.
	Degraded bool
	Detail   string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Degraded constructs a ready Health record that explains what is missing.
func Degraded(name, detail string) Health {
	return Health{Name: name, Ready: true, Degraded: true, Detail: detail}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// State renders the record as a single status word for operators.
func (h Health) State() string {
	switch {
	case !h.Ready:
		return "not ready"
	case h.Degraded:
		return "degraded"
	default:
		return "ready"
	}
}
