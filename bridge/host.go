package bridge

import "io"

// richMIMETypes are the formatters a terminal host disables by default
// that Install forcibly enables, so display objects produce rich
// output for a connected sidecar even though nothing in the host
// process itself can render them. Missing formatters are ignored.
var richMIMETypes = []string{
	"text/html",
	"text/latex",
	"text/markdown",
	"image/png",
	"image/jpeg",
	"image/svg+xml",
	"application/json",
	"application/javascript",
	"application/pdf",
}

// CellResult describes the outcome of one observed cell completion, as
// reported by the Host's cell-finished event registry.
type CellResult struct {
	// Result is the cell's produced value, or nil if the cell produced
	// nothing (or raised).
	Result any
	// ErrorInExec is non-nil if the cell raised.
	ErrorInExec error
}

// DisplayData is the payload passed to a Host's display publisher.
type DisplayData struct {
	Data      map[string]any
	Metadata  map[string]any
	Transient map[string]any
	// Update is true when the host call is updating a previously
	// displayed output rather than creating a new one.
	Update bool
}

// DisplayhookFunc is the host's result-printing hook: the callable that
// prints a cell's result value (e.g. IPython's "Out[3]: ..." echo).
type DisplayhookFunc func(result any)

// DisplayPublishFunc is the host's display-publish entry point.
type DisplayPublishFunc func(DisplayData)

// Host is the contract a host interpreter implements so Install can
// observe its execution lifecycle, exactly as spec.md §6's "Host
// collaborator contract" describes, reshaped for a statically typed
// embedding instead of monkey-patching a dynamic one (see Design Notes
// / SPEC_FULL.md §9): wrapping is expressed as middleware registration
// (WrapX(next) next) rather than reassigning an attribute in place, and
// every registration returns an unsubscribe function so Installation
// can be closed and reopened without restarting the host process.
type Host interface {
	// PythonVersion reports the host interpreter's version string
	// (major.minor.micro), used in kernel_info_reply's language_info.
	PythonVersion() string

	// EnableFormatters enables the named rich MIME formatters if the
	// host has them; names it does not recognize are ignored.
	EnableFormatters(mimeTypes []string)

	// Format renders value into a MIME bundle and a metadata dict
	// using the host's own display-formatter plumbing.
	Format(value any) (data map[string]any, metadata map[string]any, err error)

	// EvalExpression evaluates a single user_expressions entry (name
	// is informational, expr is the expression source) in the host's
	// global scope and returns its repr.
	EvalExpression(name, expr string) (repr string, err error)

	// Stdout/SetStdout and Stderr/SetStderr expose the host's standard
	// streams so Install can tee them; SetStdout/SetStderr report the
	// previous writer so Installation.Close can restore it.
	Stdout() io.Writer
	SetStdout(w io.Writer) (previous io.Writer)
	Stderr() io.Writer
	SetStderr(w io.Writer) (previous io.Writer)

	// WrapDisplayhook registers middleware around the host's
	// displayhook. It returns an unsubscribe function.
	WrapDisplayhook(wrap func(next DisplayhookFunc) DisplayhookFunc) (unsubscribe func())

	// WrapDisplayPublisher registers middleware around the host's
	// display-publish function. It returns an unsubscribe function.
	WrapDisplayPublisher(wrap func(next DisplayPublishFunc) DisplayPublishFunc) (unsubscribe func())

	// OnCellFinished registers a callback invoked after each cell
	// completes. It returns an unsubscribe function.
	OnCellFinished(fn func(CellResult)) (unsubscribe func())
}
