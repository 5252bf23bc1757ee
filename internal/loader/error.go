package loader

import "strings"

var _ error = (*Error)(nil)

// Error is returned by every failed load. Kind is one of the module sentinels
// in pkg/exception, errors.Is matches both Kind and the underlying Err.
type Error struct {
	Kind   error
	Path   string
	Name   string
	Detail string
	Err    error
}

const sep = ", err: "

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		b.WriteString(" path=")
		b.WriteString(e.Path)
	}
	if e.Name != "" {
		b.WriteString(" name=")
		b.WriteString(e.Name)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(sep)
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
