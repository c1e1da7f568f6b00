// Package catalogerr defines the error kinds shared by every metadata
// catalog component. It follows the same sentinel-error-plus-namespaced-
// wrapper pattern as muscle's internal/tree and internal/storage packages,
// generalized to a tagged Kind so callers can distinguish error kinds with
// errors.Is/errors.As instead of string matching.
package catalogerr

import (
	"fmt"
)

// Kind identifies one of the error categories from spec.md §7.
type Kind int

const (
	// KindOther is used for errors that do not fit a named kind.
	KindOther Kind = iota
	KindIllegalPath
	KindPathNotExist
	KindPathAlreadyExist
	KindStorageGroupNotSet
	KindStorageGroupAlreadySet
	KindAdapterVeto
	KindIO
	KindCorrupt
	KindUnexpectedNodeKind
	KindPayloadTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindIllegalPath:
		return "illegal path"
	case KindPathNotExist:
		return "path not exist"
	case KindPathAlreadyExist:
		return "path already exist"
	case KindStorageGroupNotSet:
		return "storage group not set"
	case KindStorageGroupAlreadySet:
		return "storage group already set"
	case KindAdapterVeto:
		return "adapter veto"
	case KindIO:
		return "io"
	case KindCorrupt:
		return "corrupt"
	case KindUnexpectedNodeKind:
		return "unexpected node kind"
	case KindPayloadTooLarge:
		return "payload too large"
	default:
		return "other"
	}
}

// Error is a catalog error tagged with a Kind. The wrapped cause, if any,
// is reachable via Unwrap so errors.Is/errors.As compose normally.
type Error struct {
	Kind  Kind
	Path  string
	cause error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.cause)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is a *Error with the same Kind, allowing
// callers to write errors.Is(err, catalogerr.IllegalPath) against a
// sentinel constructed with New(KindIllegalPath, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a tagged error for the given path. cause may be nil.
func New(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, cause: cause}
}

// sentinel kind markers usable with errors.Is(err, catalogerr.IllegalPath).
var (
	IllegalPath            = &Error{Kind: KindIllegalPath}
	PathNotExist           = &Error{Kind: KindPathNotExist}
	PathAlreadyExist       = &Error{Kind: KindPathAlreadyExist}
	StorageGroupNotSet     = &Error{Kind: KindStorageGroupNotSet}
	StorageGroupAlreadySet = &Error{Kind: KindStorageGroupAlreadySet}
	AdapterVeto            = &Error{Kind: KindAdapterVeto}
	IO                     = &Error{Kind: KindIO}
	Corrupt                = &Error{Kind: KindCorrupt}
	UnexpectedNodeKind     = &Error{Kind: KindUnexpectedNodeKind}
	PayloadTooLarge        = &Error{Kind: KindPayloadTooLarge}
)

// KindOf reports the Kind of err, or KindOther if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return KindOther
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// errorf mirrors internal/tree/error.go's helper: a namespaced wrapper for
// ad hoc errors that don't carry a Kind (e.g. config parsing).
func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/catalogdb/metacatalog/"+typeMethod+": "+fmt.Sprintf(format, a...))
}

// Errorf is the exported form of errorf, used by other packages that want
// the same namespaced-error convention without a Kind.
func Errorf(typeMethod, format string, a ...interface{}) error {
	return errorf(typeMethod, format, a...)
}
