package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/datasync/internal/odata"
	"github.com/roach88/datasync/internal/pageable"
	"github.com/roach88/datasync/internal/query"
	"github.com/roach88/datasync/internal/querydef"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The query ran but failed (untranslatable, transport or decode error)
	ExitCommandError = 2 // Command error (bad flags, config, or definition file)
)

// Error codes reported in CLIError.Code. Definition errors use the
// querydef codes (E2xx).
const (
	ErrCodeGeneric     = "E001"
	ErrCodeConfig      = "E101"
	ErrCodeTranslation = "E301"
	ErrCodeUsage       = "E302"
	ErrCodeTransport   = "E401"
	ErrCodeDecode      = "E402"
	ErrCodeJournal     = "E501"
)

// ExitError carries the exit code and error code for a failed command.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	ErrCode string // "E101", "E301", ...
	Message string
	Err     error // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without an underlying error.
func NewExitError(code int, errCode, message string) *ExitError {
	return &ExitError{Code: code, ErrCode: errCode, Message: message}
}

// WrapExitError wraps err with an exit code and error code.
func WrapExitError(code int, errCode, message string, err error) *ExitError {
	return &ExitError{Code: code, ErrCode: errCode, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error carries no exit code.
func GetExitCode(err error) int {
	code, _ := classify(err)
	return code
}

// classify maps an error to its exit code and error code. An explicit
// ExitError wins; otherwise the typed errors of the library packages decide.
func classify(err error) (exit int, code string) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ErrCode != "" {
		return exitErr.Code, exitErr.ErrCode
	}

	var defErr *querydef.DefinitionError
	if errors.As(err, &defErr) {
		return ExitCommandError, defErr.Code
	}

	switch {
	case odata.IsTranslationError(err):
		return ExitFailure, ErrCodeTranslation
	case query.IsUsageError(err):
		return ExitCommandError, ErrCodeUsage
	case pageable.IsDecodeError(err):
		return ExitFailure, ErrCodeDecode
	case pageable.IsTransportError(err):
		return ExitFailure, ErrCodeTransport
	case exitErr != nil:
		return exitErr.Code, ErrCodeGeneric
	}
	return ExitFailure, ErrCodeGeneric
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details

	// RequestURL is the first page URL, when the command built one.
	RequestURL string `json:"request_url,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E101", "E301", ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessFor("", data)
}

// SuccessFor is Success with the request URL attached to JSON output.
func (f *OutputFormatter) SuccessFor(requestURL string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:     "ok",
			Data:       data,
			RequestURL: requestURL,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. Text errors go to the
// diagnostic writer so they never mix with results.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	w := f.GetErrWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// errorDetails extracts structured context from typed errors for JSON output.
func errorDetails(err error) any {
	var defErr *querydef.DefinitionError
	if errors.As(err, &defErr) {
		d := map[string]any{}
		if defErr.File != "" {
			d["file"] = defErr.File
		}
		if defErr.Path != "" {
			d["path"] = defErr.Path
		}
		if defErr.Pos.IsValid() {
			d["line"] = defErr.Pos.Line()
			d["column"] = defErr.Pos.Column()
		}
		if len(d) > 0 {
			return d
		}
	}

	var te *odata.TranslationError
	if errors.As(err, &te) {
		return map[string]any{"construct": te.Construct}
	}

	var tre *pageable.TransportError
	if errors.As(err, &tre) {
		d := map[string]any{"url": tre.URL}
		if tre.StatusCode != 0 {
			d["status"] = tre.StatusCode
		}
		return d
	}
	return nil
}
