package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal     ErrorCode = "COMMON_001"
	ErrCodeInvalidInput ErrorCode = "COMMON_002"
	ErrCodeValidation   ErrorCode = "COMMON_010"
	ErrCodeCanceled     ErrorCode = "COMMON_017"

	CodeUnknown ErrorCode = "UNKNOWN"
	CodeOK      ErrorCode = "OK"
)

// Extraction error codes.  These classify failures the engine recovers from
// locally; they surface in logs and metrics, never to extraction callers.
const (
	ErrCodePatternInvalid  ErrorCode = "EXT_001"
	ErrCodeRangeConversion ErrorCode = "EXT_002"
	ErrCodeDetectorFailed  ErrorCode = "EXT_003"
)

// Configuration error codes.
const (
	ErrCodeConfigInvalid  ErrorCode = "CFG_001"
	ErrCodeConfigNotFound ErrorCode = "CFG_002"
)

// recoverable lists the codes the extraction engine swallows.
var recoverable = map[ErrorCode]bool{
	ErrCodePatternInvalid:  true,
	ErrCodeRangeConversion: true,
	ErrCodeDetectorFailed:  true,
}

// IsRecoverable reports whether code belongs to the set of per-match failures
// that extraction skips instead of returning.
func IsRecoverable(code ErrorCode) bool {
	return recoverable[code]
}
