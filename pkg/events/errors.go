package events

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the operation that failed
type ErrorCode string

const (
	CodeSDKInitialization         ErrorCode = "ERROR_SDK_INITIALIZATION"
	CodeGetAllProviders           ErrorCode = "ERROR_GET_ALL_PROVIDERS"
	CodeGetProvider               ErrorCode = "ERROR_GET_PROVIDER"
	CodeCreateProvider            ErrorCode = "ERROR_CREATE_PROVIDER"
	CodeUpdateProvider            ErrorCode = "ERROR_UPDATE_PROVIDER"
	CodeDeleteProvider            ErrorCode = "ERROR_DELETE_PROVIDER"
	CodeGetAllProviderMetadata    ErrorCode = "ERROR_GET_ALL_PROVIDER_METADATA"
	CodeGetAllEventMetadata       ErrorCode = "ERROR_GET_ALL_EVENTMETADATA"
	CodeGetEventMetadata          ErrorCode = "ERROR_GET_EVENTMETADATA"
	CodeCreateEventMetadata       ErrorCode = "ERROR_CREATE_EVENTMETADATA"
	CodeUpdateEventMetadata       ErrorCode = "ERROR_UPDATE_EVENTMETADATA"
	CodeDeleteAllEventMetadata    ErrorCode = "ERROR_DELETE_ALL_EVENTMETADATA"
	CodeDeleteEventMetadata       ErrorCode = "ERROR_DELETE_EVENTMETADATA"
	CodeCreateRegistration        ErrorCode = "ERROR_CREATE_REGISTRATION"
	CodeUpdateRegistration        ErrorCode = "ERROR_UPDATE_REGISTRATION"
	CodeGetRegistration           ErrorCode = "ERROR_GET_REGISTRATION"
	CodeGetAllRegistration        ErrorCode = "ERROR_GET_ALL_REGISTRATION"
	CodeGetAllRegistrationsForOrg ErrorCode = "ERROR_GET_ALL_REGISTRATIONS_FOR_ORG"
	CodeDeleteRegistration        ErrorCode = "ERROR_DELETE_REGISTRATION"
	CodeGetJournalData            ErrorCode = "ERROR_GET_JOURNAL_DATA"
	CodePublishEvent              ErrorCode = "ERROR_PUBLISH_EVENT"
)

// messageFormats holds the codes whose message is more than the cause text
var messageFormats = map[ErrorCode]string{
	CodeSDKInitialization: "SDK initialization error(s). Missing arguments: %s",
}

// masked replaces credentials in RequestDetails
const masked = "***"

// RequestDetails describes the failed call, with credentials masked
type RequestDetails struct {
	Method    string            `json:"method,omitempty"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// SDKError is returned by every Client operation
type SDKError struct {
	Code    ErrorCode
	Message string
	Details *RequestDetails
	Err     error
}

func newSDKError(code ErrorCode, details *RequestDetails, cause error) *SDKError {
	text := ""
	if cause != nil {
		text = cause.Error()
	}
	format, ok := messageFormats[code]
	if !ok {
		format = "%s"
	}
	return &SDKError{
		Code:    code,
		Message: fmt.Sprintf(format, text),
		Details: details,
		Err:     cause,
	}
}

func (e *SDKError) Error() string {
	return fmt.Sprintf("EventsSDK:%s: %s", e.Code, e.Message)
}

func (e *SDKError) Unwrap() error {
	return e.Err
}

// Is matches any SDKError with the same code
func (e *SDKError) Is(target error) bool {
	t, ok := target.(*SDKError)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the SDKError in err's chain, or ""
func CodeOf(err error) ErrorCode {
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.Code
	}
	return ""
}

// requestDetails snapshots req for an error, masking credentials
func requestDetails(req *http.Request, resp *http.Response) *RequestDetails {
	details := &RequestDetails{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: make(map[string]string, len(req.Header)),
	}
	for name := range req.Header {
		details.Headers[name] = req.Header.Get(name)
	}
	for _, name := range []string{HeaderAuthorization, HeaderAPIKey} {
		if _, ok := details.Headers[http.CanonicalHeaderKey(name)]; ok {
			details.Headers[http.CanonicalHeaderKey(name)] = masked
		}
	}
	if resp != nil {
		details.RequestID = resp.Header.Get(HeaderRequestID)
	}
	return details
}
