// Package valueformat implements the Value Format component: the lexical
// rules that translate between a Go value an application sets on an
// attribute and the literal form a store or codec persists, keyed by the
// (jsonld_type, language) pair a property declares.
package valueformat

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/oldman-go/oldman/pkg/errors"
)

// Well-known jsonld_type IRIs a ValueFormat may be selected by. IRIObject is
// not a literal datatype; it marks an object-valued attribute whose format
// checks that the value is a usable IRI reference rather than a literal.
const (
	XSDString     = "http://www.w3.org/2001/XMLSchema#string"
	XSDBoolean    = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDInteger    = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal    = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDate       = "http://www.w3.org/2001/XMLSchema#date"
	XSDDateTime   = "http://www.w3.org/2001/XMLSchema#dateTime"
	XSDHexBinary  = "http://www.w3.org/2001/XMLSchema#hexBinary"
	XSDBase64     = "http://www.w3.org/2001/XMLSchema#base64Binary"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	IRIObject     = "@id"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// ValueFormat checks, encodes and decodes a single attribute's value.
// Check validates a Go value already in its natural in-memory shape (a
// string, bool, int64, float64, time.Time, []byte...); ToLexical renders
// it as the RDF literal's lexical form; FromLexical parses that lexical
// form back into the Go shape Check accepts.
type ValueFormat interface {
	// Datatype returns the jsonld_type this format implements.
	Datatype() string
	Check(value interface{}) *errors.Error
	ToLexical(value interface{}) (string, *errors.Error)
	FromLexical(lexical string) (interface{}, *errors.Error)
}

// Select returns the ValueFormat for a (jsonld_type, language) pair.
// language is only consulted when jsonldType is empty: any non-empty value
// then selects the langString format, which RDFLangString always selects
// (the language tag itself is carried alongside the literal by the
// attribute, not by the format). An unknown
// jsonld_type falls back to plain strings, matching an unrecognized
// datatype being treated as opaque text.
func Select(jsonldType, language string) ValueFormat {
	if jsonldType == RDFLangString || (jsonldType == "" && language != "") {
		return langStringFormat{}
	}
	switch jsonldType {
	case XSDString, "":
		return stringFormat{}
	case XSDBoolean:
		return booleanFormat{}
	case XSDInteger:
		return integerFormat{}
	case XSDDecimal:
		return decimalFormat{}
	case XSDDate:
		return dateFormat{}
	case XSDDateTime:
		return dateTimeFormat{}
	case XSDHexBinary:
		return hexBinaryFormat{}
	case XSDBase64:
		return base64Format{}
	case IRIObject:
		return iriRefFormat{}
	default:
		return stringFormat{}
	}
}

type stringFormat struct{}

func (stringFormat) Datatype() string { return XSDString }

func (stringFormat) Check(value interface{}) *errors.Error {
	if _, ok := value.(string); !ok {
		return errors.AttributeTypeError("expected a string, got %T", value)
	}
	return nil
}

func (f stringFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return value.(string), nil
}

func (stringFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	return lexical, nil
}

type langStringFormat struct{}

func (langStringFormat) Datatype() string { return RDFLangString }

func (langStringFormat) Check(value interface{}) *errors.Error {
	if _, ok := value.(string); !ok {
		return errors.AttributeTypeError("expected a string, got %T", value)
	}
	return nil
}

func (f langStringFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return value.(string), nil
}

func (langStringFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	return lexical, nil
}

type booleanFormat struct{}

func (booleanFormat) Datatype() string { return XSDBoolean }

func (booleanFormat) Check(value interface{}) *errors.Error {
	if _, ok := value.(bool); !ok {
		return errors.AttributeTypeError("expected a bool, got %T", value)
	}
	return nil
}

func (f booleanFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return strconv.FormatBool(value.(bool)), nil
}

func (booleanFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	b, err := strconv.ParseBool(lexical)
	if err != nil {
		return nil, errors.AttributeTypeError("%q is not a valid xsd:boolean", lexical)
	}
	return b, nil
}

type integerFormat struct{}

func (integerFormat) Datatype() string { return XSDInteger }

func (integerFormat) Check(value interface{}) *errors.Error {
	switch value.(type) {
	case int, int32, int64:
		return nil
	default:
		return errors.AttributeTypeError("expected an integer, got %T", value)
	}
}

func (f integerFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", value), nil
}

func (integerFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	n, err := strconv.ParseInt(lexical, 10, 64)
	if err != nil {
		return nil, errors.AttributeTypeError("%q is not a valid xsd:integer", lexical)
	}
	return n, nil
}

type decimalFormat struct{}

func (decimalFormat) Datatype() string { return XSDDecimal }

func (decimalFormat) Check(value interface{}) *errors.Error {
	switch value.(type) {
	case float32, float64, int, int64:
		return nil
	default:
		return errors.AttributeTypeError("expected a number, got %T", value)
	}
}

func (f decimalFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	switch v := value.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 64), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return fmt.Sprintf("%d", value), nil
	}
}

func (decimalFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	f, err := strconv.ParseFloat(lexical, 64)
	if err != nil {
		return nil, errors.AttributeTypeError("%q is not a valid xsd:decimal", lexical)
	}
	return f, nil
}

type dateFormat struct{}

func (dateFormat) Datatype() string { return XSDDate }

func (dateFormat) Check(value interface{}) *errors.Error {
	if _, ok := value.(time.Time); !ok {
		return errors.AttributeTypeError("expected a time.Time, got %T", value)
	}
	return nil
}

func (f dateFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return value.(time.Time).Format(dateLayout), nil
}

func (dateFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	t, err := time.Parse(dateLayout, lexical)
	if err != nil {
		return nil, errors.AttributeTypeError("%q is not a valid xsd:date", lexical)
	}
	return t, nil
}

type dateTimeFormat struct{}

func (dateTimeFormat) Datatype() string { return XSDDateTime }

func (dateTimeFormat) Check(value interface{}) *errors.Error {
	if _, ok := value.(time.Time); !ok {
		return errors.AttributeTypeError("expected a time.Time, got %T", value)
	}
	return nil
}

func (f dateTimeFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return value.(time.Time).Format(dateTimeLayout), nil
}

func (dateTimeFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	t, err := time.Parse(dateTimeLayout, lexical)
	if err != nil {
		return nil, errors.AttributeTypeError("%q is not a valid xsd:dateTime", lexical)
	}
	return t, nil
}

type hexBinaryFormat struct{}

func (hexBinaryFormat) Datatype() string { return XSDHexBinary }

func (hexBinaryFormat) Check(value interface{}) *errors.Error {
	if _, ok := value.([]byte); !ok {
		return errors.AttributeTypeError("expected a []byte, got %T", value)
	}
	return nil
}

func (f hexBinaryFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return hex.EncodeToString(value.([]byte)), nil
}

func (hexBinaryFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	b, err := hex.DecodeString(lexical)
	if err != nil {
		return nil, errors.AttributeTypeError("%q is not valid xsd:hexBinary", lexical)
	}
	return b, nil
}

type base64Format struct{}

func (base64Format) Datatype() string { return XSDBase64 }

func (base64Format) Check(value interface{}) *errors.Error {
	if _, ok := value.([]byte); !ok {
		return errors.AttributeTypeError("expected a []byte, got %T", value)
	}
	return nil
}

func (f base64Format) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(value.([]byte)), nil
}

func (base64Format) FromLexical(lexical string) (interface{}, *errors.Error) {
	b, err := base64.StdEncoding.DecodeString(lexical)
	if err != nil {
		return nil, errors.AttributeTypeError("%q is not valid xsd:base64Binary", lexical)
	}
	return b, nil
}

// iriRefFormat checks object-valued attributes, where the value on the
// wire is always an IRI string (a resource's hash IRI, a temporary Id's
// placeholder, or a nested resource already normalized to its IRI by the
// attribute runtime before ToLexical is ever called).
type iriRefFormat struct{}

func (iriRefFormat) Datatype() string { return IRIObject }

func (iriRefFormat) Check(value interface{}) *errors.Error {
	s, ok := value.(string)
	if !ok {
		return errors.AttributeTypeError("expected an IRI string, got %T", value)
	}
	if s == "" {
		return errors.AttributeTypeError("IRI reference must not be empty")
	}
	return nil
}

func (f iriRefFormat) ToLexical(value interface{}) (string, *errors.Error) {
	if err := f.Check(value); err != nil {
		return "", err
	}
	return value.(string), nil
}

func (iriRefFormat) FromLexical(lexical string) (interface{}, *errors.Error) {
	return lexical, nil
}
