// Package errors provides structured error types for the HarfBuzz binding.
//
// Every error carries a Phase (where in the call path it occurred) and a
// Kind (what went wrong), so callers can match with errors.Is without
// string comparison:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseRegistry, Kind: errors.KindInvalidHandle}) {
//	    ...
//	}
//
// The binding never retries and never recovers internally; all errors are
// reported synchronously to the immediate caller.
package errors
