// Package wca talks to the Watson Code Assistant generation endpoint: it
// exchanges the IBM Cloud API key for a bearer token, posts the encoded
// prompt envelope plus file attachments as multipart form data, and pulls
// the generated text out of the JSON reply.
package wca

import (
	"errors"
	"fmt"
)

// ContentPath is where the generated text lives in a backend response.
const ContentPath = "response.message.content"

var (
	// ErrMissingContent means the backend answered 2xx without text at
	// ContentPath.
	ErrMissingContent = errors.New("wca: backend response has no " + ContentPath)

	// ErrAttachmentOutsideRoot rejects file_list entries outside the
	// configured attachment root.
	ErrAttachmentOutsideRoot = errors.New("wca: attachment outside allowed root")
)

// StatusError is a non-2xx reply from the backend or the IAM endpoint.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wca: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
