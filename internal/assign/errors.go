package assign

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrMissingColumn  = errors.New("missing column")
	ErrMalformedRow   = errors.New("malformed row")
	ErrLookupFile     = errors.New("core list unavailable")
	ErrInvalidOptions = errors.New("invalid options")
)

// CoreListHint explains the expected core list format.
const CoreListHint = `A core list file needs to be specified (e.g. coreid assign -c PRJ_core_list.csv DATA.csv).
Alternatively, a file named corelist.csv must exist in the current directory.
The core list should be a csv file with the following format: sectionNumber,coreID
e.g.: 1,PROJ-LAK17-1A-1P-1-A
      2,PROJ-LAK17-1A-2B-1-A
      3,PROJ-LAK17-1A-3B-1-A
      1,PROJ-LAK17-2A-1P-1-A
      2,PROJ-LAK17-2A-1P-2-A`

// MissingColumnError is returned when a required column cannot be located in
// the header row.
type MissingColumnError struct {
	Column string
	Tried  []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("cannot find %s column", e.Column)
	}
	quoted := make([]string, len(e.Tried))
	for i, n := range e.Tried {
		quoted[i] = "'" + n + "'"
	}
	return fmt.Sprintf("cannot find %s column; rename it to %s or pass its index explicitly",
		e.Column, strings.Join(quoted, " or "))
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// MalformedRowError reports a row whose section or depth value cannot be parsed.
type MalformedRowError struct {
	Table  string // "data" or "core list"
	Row    int    // 0-based row index in the source table
	Column int
	Value  string
	Err    error
}

func (e *MalformedRowError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("%s row %d: %v", e.Table, e.Row, e.Err)
	}
	return fmt.Sprintf("%s row %d, column %d: cannot parse %q: %v", e.Table, e.Row, e.Column, e.Value, e.Err)
}

func (e *MalformedRowError) Is(target error) bool { return target == ErrMalformedRow }
func (e *MalformedRowError) Unwrap() error        { return e.Err }

// LookupFileError reports a core list that cannot be found or read.
type LookupFileError struct {
	Path string
	Err  error
	// Hint is shown to the user in addition to the error.
	Hint string
}

func (e *LookupFileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("core list: %v", e.Err)
	}
	return fmt.Sprintf("core list %s: %v", e.Path, e.Err)
}

func (e *LookupFileError) Is(target error) bool { return target == ErrLookupFile }
func (e *LookupFileError) Unwrap() error        { return e.Err }

// OptionsError reports an inconsistent Options value.
type OptionsError struct {
	Field  string
	Reason string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *OptionsError) Is(target error) bool { return target == ErrInvalidOptions }
