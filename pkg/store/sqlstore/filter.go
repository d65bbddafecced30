package sqlstore

import (
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/yaacov/tree-search-language/pkg/tsl"

	"github.com/oldman-go/oldman/pkg/errors"
)

// attributeNamePattern restricts attribute local names accepted on the left
// hand side of a filter expression, closing the door on SQL injection
// through field name interpolation.
var attributeNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// reservedFields can never be queried through the properties column because
// they are not attributes, they are columns of the resources table itself.
var reservedFields = map[string]bool{
	"iri":   true,
	"types": true,
}

// startsWithProperties reports whether a field name is already expressed in
// SQL, e.g. "properties ->> 'name'", rather than the bare attribute form.
func startsWithProperties(s string) bool {
	return strings.HasPrefix(s, "properties ->>")
}

// hasAttribute returns true if node has a bare attribute identifier, such as
// "name" or "email", on its left hand side that still needs to be rewritten
// into a JSONB lookup against the properties column.
func hasAttribute(n tsl.Node) bool {
	l, ok := n.Left.(tsl.Node)
	if !ok {
		return false
	}

	leftStr, ok := l.Left.(string)
	if !ok || l.Func != tsl.IdentOp {
		return false
	}

	if reservedFields[leftStr] || startsWithProperties(leftStr) {
		return false
	}

	return true
}

// attributeNodeConverter rewrites a bare attribute identifier into a JSONB
// lookup against the properties column, so that
//
//	( name = "Alice" )
//
// becomes
//
//	( properties ->> 'name' = "Alice" )
func attributeNodeConverter(n tsl.Node) (tsl.Node, *errors.Error) {
	l, ok := n.Left.(tsl.Node)
	if !ok {
		return n, nil
	}

	attributeName, ok := l.Left.(string)
	if !ok {
		return n, nil
	}

	if !attributeNamePattern.MatchString(attributeName) {
		return n, errors.AttributeAccessError("attribute name '%s' is invalid: must be a local name made of letters, digits, and underscores", attributeName)
	}

	return tsl.Node{
		Func: n.Func,
		Left: tsl.Node{
			Func: tsl.IdentOp,
			Left: fmt.Sprintf("properties ->> '%s'", attributeName),
		},
		Right: n.Right,
	}, nil
}

// typesNodeConverter rewrites a "types" identifier into a containment check
// against the types array column, so that
//
//	( types = "LocalPerson" )
//
// becomes a squirrel expression equivalent to
//
//	( 'LocalPerson' = ANY(types) )
func typesNodeConverter(n tsl.Node) (sq.Sqlizer, *errors.Error) {
	r, ok := n.Right.(tsl.Node)
	if !ok {
		return nil, errors.SPARQLParseError("invalid types filter: missing right hand side")
	}

	typeName, ok := r.Left.(string)
	if !ok {
		return nil, errors.SPARQLParseError("invalid types filter: expected a string class name")
	}

	switch n.Func {
	case tsl.EqOp:
		return sq.Expr("? = ANY(types)", typeName), nil
	case tsl.NotEqOp:
		return sq.Expr("? != ALL(types)", typeName), nil
	default:
		return nil, errors.SPARQLParseError("unsupported operator for types filter, only '=' and '!=' are accepted")
	}
}

// hasTypes returns true if node filters on the "types" identifier.
func hasTypes(n tsl.Node) bool {
	l, ok := n.Left.(tsl.Node)
	if !ok {
		return false
	}

	leftStr, ok := l.Left.(string)
	return ok && l.Func == tsl.IdentOp && leftStr == "types"
}

// TypesExpression wraps an extracted types filter so it can travel outside
// the TSL tree alongside the rest of the WHERE clause.
type TypesExpression struct {
	Expr sq.Sqlizer
}

// ExtractTypesQueries walks the TSL tree and extracts filters against the
// "types" column, returning the modified tree (with those nodes replaced by
// an always-true placeholder) and the extracted expressions. This mirrors
// how condition queries had to be pulled out of the tree in the teacher
// implementation, because TSL has no native array-containment operator.
func ExtractTypesQueries(n tsl.Node) (tsl.Node, []sq.Sqlizer, *errors.Error) {
	var exprs []sq.Sqlizer
	modified, err := extractTypesWalk(n, &exprs)
	return modified, exprs, err
}

func extractTypesWalk(n tsl.Node, exprs *[]sq.Sqlizer) (tsl.Node, *errors.Error) {
	if hasTypes(n) {
		expr, err := typesNodeConverter(n)
		if err != nil {
			return n, err
		}
		*exprs = append(*exprs, expr)

		return tsl.Node{
			Func:  tsl.EqOp,
			Left:  tsl.Node{Func: tsl.NumberOp, Left: float64(1)},
			Right: tsl.Node{Func: tsl.NumberOp, Left: float64(1)},
		}, nil
	}

	var newLeft, newRight interface{}

	if n.Left != nil {
		switch v := n.Left.(type) {
		case tsl.Node:
			newLeftNode, err := extractTypesWalk(v, exprs)
			if err != nil {
				return n, err
			}
			newLeft = newLeftNode
		default:
			newLeft = n.Left
		}
	}

	if n.Right != nil {
		switch v := n.Right.(type) {
		case tsl.Node:
			newRightNode, err := extractTypesWalk(v, exprs)
			if err != nil {
				return n, err
			}
			newRight = newRightNode
		case []tsl.Node:
			var newRightNodes []tsl.Node
			for _, rightNode := range v {
				newRightNode, err := extractTypesWalk(rightNode, exprs)
				if err != nil {
					return n, err
				}
				newRightNodes = append(newRightNodes, newRightNode)
			}
			newRight = newRightNodes
		default:
			newRight = n.Right
		}
	}

	return tsl.Node{
		Func:  n.Func,
		Left:  newLeft,
		Right: newRight,
	}, nil
}

// FieldNameWalk walks the filter tree, rewriting bare attribute identifiers
// into properties JSONB lookups and rejecting any reserved or malformed
// field name along the way.
func FieldNameWalk(n tsl.Node) (newNode tsl.Node, err *errors.Error) {
	var l, r tsl.Node

	if hasAttribute(n) {
		n, err = attributeNodeConverter(n)
		if err != nil {
			return
		}
	}

	switch n.Func {
	case tsl.IdentOp:
		fieldName, ok := n.Left.(string)
		if !ok {
			err = errors.SPARQLParseError("identifier name must be a string")
			return
		}

		if reservedFields[fieldName] {
			err = errors.AttributeAccessError("'%s' cannot be queried directly", fieldName)
			return
		}

		newNode = tsl.Node{Func: tsl.IdentOp, Left: fieldName}
	case tsl.StringOp, tsl.NumberOp:
		newNode = tsl.Node{Func: n.Func, Left: n.Left}
	default:
		if n.Left != nil {
			leftNode, ok := n.Left.(tsl.Node)
			if !ok {
				err = errors.SPARQLParseError("invalid node structure")
				return
			}
			l, err = FieldNameWalk(leftNode)
			if err != nil {
				return
			}
		}

		if n.Right != nil {
			switch v := n.Right.(type) {
			case tsl.Node:
				r, err = FieldNameWalk(v)
				if err != nil {
					return
				}
				newNode = tsl.Node{Func: n.Func, Left: l, Right: r}
			case []tsl.Node:
				var rr []tsl.Node
				for _, e := range v {
					r, err = FieldNameWalk(e)
					if err != nil {
						return
					}
					rr = append(rr, r)
				}
				newNode = tsl.Node{Func: n.Func, Left: l, Right: rr}
			default:
				err = errors.SPARQLParseError("unsupported right hand side type in filter query")
			}
		} else {
			newNode = tsl.Node{Func: n.Func, Left: l}
		}
	}

	return
}

// cleanOrderBy takes a single orderBy argument ("name" or "name desc") and
// rewrites it into a SQL fragment safe to concatenate into an ORDER BY
// clause.
func cleanOrderBy(userArg string) (orderBy string, err *errors.Error) {
	trimmed := strings.Trim(userArg, " ")
	parts := strings.Split(trimmed, " ")

	var fieldName, direction string
	switch len(parts) {
	case 1:
		fieldName, direction = parts[0], "asc"
	case 2:
		fieldName, direction = parts[0], parts[1]
	default:
		err = errors.SPARQLParseError("bad order value '%s'", userArg)
		return
	}

	if direction != "asc" && direction != "desc" {
		err = errors.SPARQLParseError("bad order value '%s'", userArg)
		return
	}

	if reservedFields[fieldName] {
		orderBy = fmt.Sprintf("%s %s", fieldName, direction)
		return
	}

	if !attributeNamePattern.MatchString(fieldName) {
		err = errors.AttributeAccessError("attribute name '%s' is invalid", fieldName)
		return
	}

	orderBy = fmt.Sprintf("properties ->> '%s' %s", fieldName, direction)
	return
}

// ArgsToOrderBy cleans a list of user-supplied order-by arguments.
func ArgsToOrderBy(orderByArgs []string) (orderBy []string, err *errors.Error) {
	if len(orderByArgs) == 0 {
		return
	}

	orderBy = []string{}
	for _, arg := range orderByArgs {
		var cleaned string
		cleaned, err = cleanOrderBy(arg)
		if err != nil {
			return
		}
		orderBy = append(orderBy, cleaned)
	}
	return
}
