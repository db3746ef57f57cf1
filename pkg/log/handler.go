package log

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// StacktraceKey is the field name zerolog uses for marshaled stacks.
const StacktraceKey = "stack"

// MarshalStack extracts the stack trace recorded by cockroachdb/errors.
// It is installed as zerolog.ErrorStackMarshaler by SetupLogger.
func MarshalStack(err error) interface{} {
	if err == nil {
		return nil
	}
	if st := extractStacktrace(err); st != "" {
		return st
	}
	return nil
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	// wrappers without safe details still render the stack under %+v
	if errors.GetReportableStackTrace(err) != nil {
		return fmt.Sprintf("%+v", err)
	}
	return ""
}
