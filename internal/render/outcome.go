package render

import (
	"fmt"
	"strings"
)

// ArtifactExt is the extension of compiled artifacts. Tool results ending with it
// are artifact paths.
const ArtifactExt = ".pdf"

// Outcome is the result of one render. Every variant renders to text the model
// can read; a CompileError is data, not a failure of the call.
type Outcome interface {
	fmt.Stringer
	isOutcome()
}

// Success carries the absolute path of the compiled artifact.
type Success struct {
	ArtifactPath string
}

// CompileError carries the compiler diagnostic. Line is zero when the
// diagnostic could not be located.
type CompileError struct {
	Line          int
	Message       string
	OffendingLine string
}

// ToolUnavailable reports that the compiler cannot be run at all.
type ToolUnavailable struct {
	Reason string
}

// InternalError reports a fault in file or process handling.
type InternalError struct {
	Reason string
}

func (Success) isOutcome()         {}
func (CompileError) isOutcome()    {}
func (ToolUnavailable) isOutcome() {}
func (InternalError) isOutcome()   {}

func (o Success) String() string {
	return o.ArtifactPath
}

func (o CompileError) String() string {
	if o.Line > 0 {
		return fmt.Sprintf("LaTeX compilation failed at line %d: %s\n"+
			"Problematic line: %s\n"+
			"Please fix the LaTeX error and try again. "+
			"Common issues: undefined commands, missing packages, or syntax errors.",
			o.Line, o.Message, o.OffendingLine)
	}
	return fmt.Sprintf("LaTeX compilation failed: %s\nPlease fix the LaTeX errors and try again.",
		strings.TrimSpace(o.Message))
}

func (o ToolUnavailable) String() string {
	return "Error: " + o.Reason
}

func (o InternalError) String() string {
	return fmt.Sprintf("Error rendering LaTeX: %s. Please try again with valid LaTeX content.", o.Reason)
}

// IsArtifactResult reports whether a tool result names a compiled artifact.
func IsArtifactResult(result string) bool {
	return strings.HasSuffix(strings.TrimSpace(result), ArtifactExt)
}
