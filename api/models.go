package api

// AssembleRequest is the body of POST /api/v1/assemble.
type AssembleRequest struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
	Boot     bool   `json:"boot"`
}

// AssembleResponse carries the assembled image (json.Marshal encodes
// []byte as base64 automatically) plus the label map a caller can feed
// straight to the inspector.
type AssembleResponse struct {
	Image  []byte           `json:"image"`
	Labels map[string]int64 `json:"labels"`
}

// LintRequest is the body of POST /api/v1/lint.
type LintRequest struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

// LintResponse mirrors tools.LintIssue without exposing the internal
// package's types directly on the wire.
type LintResponse struct {
	Issues []LintIssueJSON `json:"issues"`
}

// LintIssueJSON is the wire shape of one tools.LintIssue.
type LintIssueJSON struct {
	Level   string `json:"level"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorResponse is returned for any 4xx/5xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
