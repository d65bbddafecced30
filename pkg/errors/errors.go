// Package errors defines the taxonomy of errors oldman raises, in the
// definitions-table-plus-constructors style used throughout the rest of
// the module.
package errors

import (
	"context"
	"fmt"

	"github.com/oldman-go/oldman/pkg/logger"
)

// Family groups error codes by the phase of the object-mapping lifecycle
// that raises them.
type Family int

const (
	// FamilySchema covers errors raised while compiling a model: malformed
	// property declarations, conflicting datatypes, reserved attribute
	// names. These are fatal - the registry refuses to expose a half-built
	// model.
	FamilySchema Family = iota
	// FamilyEdit covers errors raised while an attribute is set or a
	// session is committed. The session that raised them stays usable.
	FamilyEdit
	// FamilyAccess covers errors raised while reading a resource or
	// attribute that does not exist or is not reachable as named.
	FamilyAccess
	// FamilyInternal covers errors where the session's consistency after
	// the error is not guaranteed.
	FamilyInternal
)

func (f Family) String() string {
	switch f {
	case FamilySchema:
		return "schema"
	case FamilyEdit:
		return "edit"
	case FamilyAccess:
		return "access"
	case FamilyInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Code identifies a specific error definition in OLDMAN-CAT-NUM format.
type Code string

const (
	// Schema errors (SCH)
	CodePropertyDef              Code = "OLDMAN-SCH-001"
	CodeAlreadyDeclaredDatatype  Code = "OLDMAN-SCH-002"
	CodeReservedAttributeName    Code = "OLDMAN-SCH-003"
	CodeUndeclaredClassName      Code = "OLDMAN-SCH-004"
	CodeAlreadyGeneratedAttrib   Code = "OLDMAN-SCH-005"
	CodeDuplicateModel           Code = "OLDMAN-SCH-006"

	// User/edit errors (EDT)
	CodeAttributeType         Code = "OLDMAN-EDT-001"
	CodeRequiredProperty      Code = "OLDMAN-EDT-002"
	CodeReadOnlyAttribute     Code = "OLDMAN-EDT-003"
	CodeUniqueness            Code = "OLDMAN-EDT-004"
	CodeWrongResource         Code = "OLDMAN-EDT-005"
	CodeDifferentHashlessIRI  Code = "OLDMAN-EDT-006"
	CodeForbiddenSkolemizedIRI Code = "OLDMAN-EDT-007"
	CodeUnauthorizedTypeChange Code = "OLDMAN-EDT-008"

	// Access errors (ACC)
	CodeAttributeAccess Code = "OLDMAN-ACC-001"
	CodeObjectNotFound  Code = "OLDMAN-ACC-002"
	CodeHashIri         Code = "OLDMAN-ACC-003"
	CodeClassInstance   Code = "OLDMAN-ACC-004"

	// Internal errors (INT)
	CodeInternal       Code = "OLDMAN-INT-001"
	CodeSPARQLParse    Code = "OLDMAN-INT-002"
	CodeDataStore      Code = "OLDMAN-INT-003"
)

// definition holds the static shape of an error code: its family, a short
// title, and a default reason used when the caller supplies none.
type definition struct {
	Family Family
	Title  string
	Reason string
}

var definitions = map[Code]definition{
	CodePropertyDef:             {FamilySchema, "Property Definition Error", "property definition is invalid"},
	CodeAlreadyDeclaredDatatype: {FamilySchema, "Already Declared Datatype", "property already declares a conflicting datatype"},
	CodeReservedAttributeName:   {FamilySchema, "Reserved Attribute Name", "attribute name is reserved"},
	CodeUndeclaredClassName:     {FamilySchema, "Undeclared Class Name", "class name was not declared in any loaded context"},
	CodeAlreadyGeneratedAttrib:  {FamilySchema, "Already Generated Attribute", "attributes were already generated for this property"},
	CodeDuplicateModel:          {FamilySchema, "Duplicate Model Error", "a model is already registered under that class IRI or name"},

	CodeAttributeType:          {FamilyEdit, "Attribute Type Error", "value does not satisfy the attribute's declared type"},
	CodeRequiredProperty:       {FamilyEdit, "Required Property Error", "required property is missing a value"},
	CodeReadOnlyAttribute:      {FamilyEdit, "Read-Only Attribute Error", "attribute is read-only"},
	CodeUniqueness:             {FamilyEdit, "Uniqueness Error", "value conflicts with a uniqueness constraint"},
	CodeWrongResource:          {FamilyEdit, "Wrong Resource Error", "resource does not belong to the expected session"},
	CodeDifferentHashlessIRI:   {FamilyEdit, "Different Hashless IRI Error", "resource shares a hash IRI but not a hashless base IRI"},
	CodeForbiddenSkolemizedIRI: {FamilyEdit, "Forbidden Skolemized IRI Error", "client may not assign a skolemized IRI directly"},
	CodeUnauthorizedTypeChange: {FamilyEdit, "Unauthorized Type Change Error", "end users may not change a resource's types"},

	CodeAttributeAccess: {FamilyAccess, "Attribute Access Error", "attribute is not declared on this resource's models"},
	CodeObjectNotFound:  {FamilyAccess, "Object Not Found Error", "no resource exists with that identifier"},
	CodeHashIri:         {FamilyAccess, "Hash IRI Error", "hash IRI does not resolve to a loaded resource"},
	CodeClassInstance:   {FamilyAccess, "Class Instance Error", "resource is not an instance of the requested model"},

	CodeInternal:    {FamilyInternal, "Internal Error", "an internal error occurred"},
	CodeSPARQLParse: {FamilyInternal, "SPARQL Parse Error", "failed to parse a generated SPARQL update"},
	CodeDataStore:   {FamilyInternal, "Data Store Error", "the backing store reported an error"},
}

// Error is the concrete error type raised by every oldman package. It
// carries a stable Code so callers can dispatch on the error family
// without string matching.
type Error struct {
	Code   Code
	Family Family
	Title  string
	Reason string
	// Resource is the IRI of the resource the error concerns, when known.
	Resource string
	// Wrapped is the lower-level error this one wraps, if any.
	Wrapped error
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Reason, e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is404 mirrors the ORM convention of asking whether an error means "not
// found", independent of which specific access-family code produced it.
func (e *Error) Is404() bool {
	return e.Code == CodeObjectNotFound
}

func (e *Error) IsUniqueness() bool {
	return e.Code == CodeUniqueness
}

// New builds an Error for code, formatting reason with values when reason
// is non-empty. An undefined code is logged and downgraded to CodeInternal
// so the definitions table can never be bypassed with a typo'd constant.
func New(code Code, reason string, values ...interface{}) *Error {
	def, ok := definitions[code]
	if !ok {
		ctx := context.Background()
		logger.With(ctx, logger.FieldErrorCode, string(code)).Error("undefined error code used")
		def = definitions[CodeInternal]
		code = CodeInternal
	}

	out := &Error{
		Code:   code,
		Family: def.Family,
		Title:  def.Title,
		Reason: def.Reason,
	}
	if reason != "" {
		out.Reason = fmt.Sprintf(reason, values...)
	}
	return out
}

// WithResource attaches the resource IRI the error concerns.
func (e *Error) WithResource(iri string) *Error {
	e.Resource = iri
	return e
}

// WithWrapped attaches a lower-level cause.
func (e *Error) WithWrapped(err error) *Error {
	e.Wrapped = err
	return e
}

// Definitions returns every registered error definition, e.g. for a
// diagnostics endpoint that lists the taxonomy.
func Definitions() map[Code]definition {
	return definitions
}

// Constructor functions, one per taxonomy entry in section 7.

func PropertyDefError(reason string, values ...interface{}) *Error {
	return New(CodePropertyDef, reason, values...)
}

func AlreadyDeclaredDatatypeError(reason string, values ...interface{}) *Error {
	return New(CodeAlreadyDeclaredDatatype, reason, values...)
}

func ReservedAttributeNameError(reason string, values ...interface{}) *Error {
	return New(CodeReservedAttributeName, reason, values...)
}

func UndeclaredClassNameError(reason string, values ...interface{}) *Error {
	return New(CodeUndeclaredClassName, reason, values...)
}

func AlreadyGeneratedAttributeError(reason string, values ...interface{}) *Error {
	return New(CodeAlreadyGeneratedAttrib, reason, values...)
}

func DuplicateModelError(reason string, values ...interface{}) *Error {
	return New(CodeDuplicateModel, reason, values...)
}

func AttributeTypeError(reason string, values ...interface{}) *Error {
	return New(CodeAttributeType, reason, values...)
}

func RequiredPropertyError(reason string, values ...interface{}) *Error {
	return New(CodeRequiredProperty, reason, values...)
}

func ReadOnlyAttributeError(reason string, values ...interface{}) *Error {
	return New(CodeReadOnlyAttribute, reason, values...)
}

func UniquenessError(reason string, values ...interface{}) *Error {
	return New(CodeUniqueness, reason, values...)
}

func WrongResourceError(reason string, values ...interface{}) *Error {
	return New(CodeWrongResource, reason, values...)
}

func DifferentHashlessIRIError(reason string, values ...interface{}) *Error {
	return New(CodeDifferentHashlessIRI, reason, values...)
}

func ForbiddenSkolemizedIRIError(reason string, values ...interface{}) *Error {
	return New(CodeForbiddenSkolemizedIRI, reason, values...)
}

func UnauthorizedTypeChangeError(reason string, values ...interface{}) *Error {
	return New(CodeUnauthorizedTypeChange, reason, values...)
}

func AttributeAccessError(reason string, values ...interface{}) *Error {
	return New(CodeAttributeAccess, reason, values...)
}

func ObjectNotFoundError(reason string, values ...interface{}) *Error {
	return New(CodeObjectNotFound, reason, values...)
}

func HashIriError(reason string, values ...interface{}) *Error {
	return New(CodeHashIri, reason, values...)
}

func ClassInstanceError(reason string, values ...interface{}) *Error {
	return New(CodeClassInstance, reason, values...)
}

func InternalError(reason string, values ...interface{}) *Error {
	return New(CodeInternal, reason, values...)
}

func SPARQLParseError(reason string, values ...interface{}) *Error {
	return New(CodeSPARQLParse, reason, values...)
}

func DataStoreError(err error) *Error {
	return New(CodeDataStore, "%s", err.Error()).WithWrapped(err)
}
