package httpx

import "net/http"

const (
	StatusOK                 = http.StatusOK                  // Successful request
	StatusFound              = http.StatusFound               // Temporary redirect
	StatusBadRequest         = http.StatusBadRequest          // Validation or malformed input
	StatusForbidden          = http.StatusForbidden           // Client could not be identified
	StatusNotFound           = http.StatusNotFound            // Resource not found
	StatusTooManyRequests    = http.StatusTooManyRequests     // Rate limiting or quotas
	StatusInternalError      = http.StatusInternalServerError // Unexpected server error
	StatusServiceUnavailable = http.StatusServiceUnavailable  // Dependency failure or maintenance
)

const (
	MIMEApplicationJSON = "application/json"
	MIMETextPlain       = "text/plain"
)
