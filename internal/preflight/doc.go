// Package preflight provides readiness checks for external services
// and filesystem paths that AirDesk depends on.
//
// These checks run in two contexts:
//   - airdeskd calls RunAll at startup and logs every failed check so a
//     missing key is visible before the first call arrives.
//   - The CLI "airdesk status" command uses individual check functions
//     (CheckResendFromConfig, CheckDirectoryAccess) to display service health.
//
// Each check is gated by its config value; unconfigured services are skipped.
package preflight
