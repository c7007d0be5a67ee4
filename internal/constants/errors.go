package constants

// Error Code Categories
// Format: XYZABC where:
// X = Category (1-9)
// YZ = Subcategory (00-99)
// ABC = Specific error (000-999)

const (
	// SUCCESS CODES (0xxxx)
	CodeSuccess = 0

	// CLIENT ERROR CODES (4xxxx)
	// 400 Bad Request (40xxx)
	CodeBadRequest       = 40000 // Generic bad request
	CodeInvalidJSON      = 40001 // Invalid JSON payload
	CodeValidationFailed = 40002 // Validation failed
	CodeMissingParameter = 40003 // Required parameter missing
	CodeInvalidParameter = 40004 // Invalid parameter value
	CodeInvalidFormat    = 40005 // Invalid format (date, etc)
	CodeInvalidGroupBy   = 40006 // No valid group-by dimension
	CodeInvalidDateRange = 40007 // Start date not before end date

	// 401 Unauthorized (41xxx)
	CodeUnauthorized     = 41000 // Generic unauthorized
	CodeMissingAuth      = 41001 // Missing authentication profile
	CodeInvalidToken     = 41002 // Invalid security token
	CodeExpiredToken     = 41003 // Expired security token
	CodeInvalidSignature = 41004 // Request signing failed
	CodeInvalidKeyFile   = 41005 // Private key unreadable or malformed
	CodeInvalidProfile   = 41006 // Profile missing from credentials file

	// 403 Forbidden (43xxx)
	CodeForbidden         = 43000 // Generic forbidden
	CodeInsufficientPerms = 43001 // Insufficient permissions

	// 404 Not Found (44xxx)
	CodeNotFound         = 44000 // Generic not found
	CodeResourceNotFound = 44001 // Specific resource not found

	// 429 Too Many Requests (42xxx)
	CodeRateLimit = 42900 // Rate limit exceeded

	// SERVER ERROR CODES (5xxxx)
	// 500 Internal Error (50xxx)
	CodeInternalError      = 50000 // Generic internal error
	CodeConfigurationError = 50005 // Configuration error
	CodeFileSystemError    = 50006 // File system error

	// 502 Bad Gateway (52xxx)
	CodeUpstreamError   = 52001 // Upstream service error
	CodeUsageAPIError   = 52002 // Metering API request failed
	CodeIdentityError   = 52003 // Identity API request failed
	CodePartialDataset  = 52004 // Pagination aborted mid-stream
	CodeEmptyDataset    = 52005 // Query returned no records

	// 504 Gateway Timeout (54xxx)
	CodeGatewayTimeout  = 54000 // Generic gateway timeout
	CodeUpstreamTimeout = 54001 // Upstream timeout
	CodeInterrupted     = 54002 // Cancelled by signal
)

// Error Code Messages - for consistent error messaging
var ErrorMessages = map[int]string{
	CodeSuccess: "Success",

	// Client Errors (4xxxx)
	CodeBadRequest:       "Bad request",
	CodeInvalidJSON:      "Invalid JSON payload",
	CodeValidationFailed: "Validation failed",
	CodeMissingParameter: "Required parameter missing",
	CodeInvalidParameter: "Invalid parameter value",
	CodeInvalidFormat:    "Invalid format",
	CodeInvalidGroupBy:   "No valid group-by dimension for calculation method",
	CodeInvalidDateRange: "Start date must be before end date",

	CodeUnauthorized:     "Unauthorized",
	CodeMissingAuth:      "Authentication profile required",
	CodeInvalidToken:     "Invalid security token",
	CodeExpiredToken:     "Security token has expired",
	CodeInvalidSignature: "Request signing failed",
	CodeInvalidKeyFile:   "Private key unreadable or malformed",
	CodeInvalidProfile:   "Profile not found in credentials file",

	CodeForbidden:         "Forbidden",
	CodeInsufficientPerms: "Insufficient permissions",

	CodeNotFound:         "Not found",
	CodeResourceNotFound: "Resource not found",

	CodeRateLimit: "Rate limit exceeded",

	// Server Errors (5xxxx)
	CodeInternalError:      "Internal error",
	CodeConfigurationError: "Configuration error",
	CodeFileSystemError:    "File system error",

	CodeUpstreamError:  "Upstream service error",
	CodeUsageAPIError:  "Metering API request failed",
	CodeIdentityError:  "Identity API request failed",
	CodePartialDataset: "Pagination aborted, dataset is partial",
	CodeEmptyDataset:   "Query returned no records",

	CodeGatewayTimeout:  "Gateway timeout",
	CodeUpstreamTimeout: "Upstream timeout",
	CodeInterrupted:     "Cancelled by signal",
}

// GetErrorMessage returns the standard message for an error code
func GetErrorMessage(code int) string {
	if msg, exists := ErrorMessages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// GetExitCodeFromCode maps an error code to the process exit status.
// Anything unrecoverable exits 1, success and recoverable outcomes exit 0.
func GetExitCodeFromCode(code int) int {
	switch code {
	case CodeSuccess, CodeEmptyDataset, CodePartialDataset:
		return 0
	default:
		return 1
	}
}
