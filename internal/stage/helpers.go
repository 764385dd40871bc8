package stage

import (
	"errors"
	"strings"

	"airdesk/internal/services"
	"airdesk/internal/store"
)

// ValidateCall checks the fields every stage relies on. Failures carry
// services.ErrValidation so the manager fails the call instead of retrying.
func ValidateCall(stageName string, call *store.Call) error {
	if call == nil {
		return services.Wrap(services.ErrValidation, stageName, "validate call", "Call record missing", errors.New("call is nil"))
	}
	if strings.TrimSpace(call.FirmID) == "" {
		return services.Wrap(services.ErrValidation, stageName, "validate call",
			"Call has no firm; resubmit it with an X-Firm-ID header", errors.New("firm id empty"))
	}
	return nil
}

// StoreError classifies a database failure as transient so the call is
// retried on the next poll.
func StoreError(stageName, op string, err error) error {
	if err == nil {
		return nil
	}
	return services.Wrap(services.ErrTransient, stageName, op, "Database operation failed; will retry", err)
}
