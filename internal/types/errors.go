package types

// PublicHTTPErrorType is the machine readable "type" of an HTTP error body
type PublicHTTPErrorType string

const (
	PublicHTTPErrorTypeGeneric            PublicHTTPErrorType = "generic"
	PublicHTTPErrorTypeUnknownPipeline    PublicHTTPErrorType = "UNKNOWN_PIPELINE"
	PublicHTTPErrorTypeAlreadyStarted     PublicHTTPErrorType = "PIPELINE_ALREADY_STARTED"
	PublicHTTPErrorTypeInvalidDraft       PublicHTTPErrorType = "INVALID_DRAFT"
	PublicHTTPErrorTypeEstimationRejected PublicHTTPErrorType = "ESTIMATION_REJECTED"
	PublicHTTPErrorTypeNetworkUnavailable PublicHTTPErrorType = "NETWORK_UNAVAILABLE"
)

// HTTPValidationErrorDetail names one invalid input field
type HTTPValidationErrorDetail struct {
	// Key of the field, dotted for nested fields
	// Required: true
	Key *string `json:"key"`
	// In is where the field was found: body, path or query
	// Required: true
	In *string `json:"in"`
	// Required: true
	Error *string `json:"error"`
}
