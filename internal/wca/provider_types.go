package wca

// IAM token endpoint reply.
type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
	Expiration  int64  `json:"expiration"` // unix seconds
}

// IAM error reply, e.g. for a revoked key.
type iamErrorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// The generation endpoint replies with
//
//	{"response": {"message": {"content": "..."}}, ...}
//
// and is read with gjson at ContentPath rather than a full struct, since
// only that one field is used.

// Multipart field names of the generation request.
const (
	formFieldMessage = "message"
	formFieldFiles   = "files"
)

// Fixed headers the generation endpoint expects from IDE clients.
const (
	headerRequestID = "Request-Id"
	headerOrigin    = "Origin"
	originValue     = "vscode"
)

// IAM grant for exchanging an API key.
const iamGrantType = "urn:ibm:params:oauth:grant-type:apikey"
