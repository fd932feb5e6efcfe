package taxon

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

var (
	// ErrNotFound is returned by stores when a taxon does not exist.
	ErrNotFound = errors.New("taxon not found")

	// ErrStale is returned by stores when an update is based on an
	// outdated lock version.
	ErrStale = errors.New("taxon was modified concurrently")
)

// FieldError is a validation message about one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects all validation failures of a mutation.
// Nothing is persisted when it is returned.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

// Add appends a message about a field.
func (e *ValidationError) Add(field, msg string, args ...any) {
	e.Fields = append(e.Fields, FieldError{
		Field:   field,
		Message: fmt.Sprintf(msg, args...),
	})
}

// Has checks if there is a message about the field.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Fields {
		if v.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, v := range e.Fields {
		msgs[i] = v.Field + " " + v.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsValidationError extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// IsNotFound checks if the error reports a missing taxon.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var gnErr *gn.Error
	return errors.As(err, &gnErr) && gnErr.Code == errcode.TaxonNotFoundError
}

// IsStale checks if the error reports a concurrent modification.
func IsStale(err error) bool {
	if errors.Is(err, ErrStale) {
		return true
	}
	var gnErr *gn.Error
	return errors.As(err, &gnErr) && gnErr.Code == errcode.TaxonStaleError
}

func NotFoundError(id int64) error {
	msg := "Taxon <em>%d</em> not found"
	vars := []any{id}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.TaxonNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: taxon %d: %w", fn, id, ErrNotFound),
	}
}

func StaleError(id int64, version int) error {
	msg := "Taxon <em>%d</em> was changed by another process, try again"
	vars := []any{id}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.TaxonStaleError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: taxon %d lock_version %d: %w",
			fn, id, version, ErrStale),
	}
}

func SameMergeError(id int64) error {
	msg := "Cannot merge taxon <em>%d</em> into itself"
	vars := []any{id}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.TaxonSameMergeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: merge of taxon %d into itself", fn, id),
	}
}

func StoreError(op string, err error) error {
	msg := "Cannot %s"
	vars := []any{op}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.TaxonStoreError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot %s: %w", fn, op, err),
	}
}

// wrapStore keeps engine errors as they are and wraps anything else coming
// from a store.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var gnErr *gn.Error
	if errors.As(err, &gnErr) {
		return err
	}
	if _, ok := AsValidationError(err); ok {
		return err
	}
	return StoreError(op, err)
}
