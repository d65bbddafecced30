package sqlstore

import (
	"fmt"

	"github.com/yaacov/tree-search-language/pkg/tsl"

	"github.com/oldman-go/oldman/pkg/errors"
)

// nodeToSQL renders a TSL tree, already rewritten by FieldNameWalk, into a
// parameterized SQL fragment. It is deliberately narrow: it only supports
// the operators an attribute filter can legitimately use, and rejects
// anything else rather than guessing at SQL it cannot be sure is safe.
func nodeToSQL(n tsl.Node) (string, []interface{}, *errors.Error) {
	switch n.Func {
	case tsl.IdentOp:
		name, ok := n.Left.(string)
		if !ok {
			return "", nil, errors.SPARQLParseError("identifier must be a string")
		}
		return name, nil, nil
	case tsl.StringOp:
		return "?", []interface{}{n.Left}, nil
	case tsl.NumberOp:
		return "?", []interface{}{n.Left}, nil
	case tsl.BooleanOp:
		return "?", []interface{}{n.Left}, nil
	case tsl.EqOp, tsl.NotEqOp, tsl.GtOp, tsl.GteOp, tsl.LtOp, tsl.LteOp:
		return binaryOp(n, comparisonOperators[n.Func])
	case tsl.AndOp, tsl.OrOp:
		return joinOp(n, logicalOperators[n.Func])
	case tsl.NotOp:
		leftNode, ok := n.Left.(tsl.Node)
		if !ok {
			return "", nil, errors.SPARQLParseError("invalid operand for NOT")
		}
		sqlStr, args, err := nodeToSQL(leftNode)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("NOT (%s)", sqlStr), args, nil
	case tsl.LikeOp:
		return binaryOp(n, "LIKE")
	case tsl.InOp:
		return inOp(n)
	default:
		return "", nil, errors.SPARQLParseError("unsupported filter operator")
	}
}

var comparisonOperators = map[tsl.Op]string{
	tsl.EqOp:    "=",
	tsl.NotEqOp: "!=",
	tsl.GtOp:    ">",
	tsl.GteOp:   ">=",
	tsl.LtOp:    "<",
	tsl.LteOp:   "<=",
}

var logicalOperators = map[tsl.Op]string{
	tsl.AndOp: "AND",
	tsl.OrOp:  "OR",
}

func binaryOp(n tsl.Node, sqlOp string) (string, []interface{}, *errors.Error) {
	leftNode, ok := n.Left.(tsl.Node)
	if !ok {
		return "", nil, errors.SPARQLParseError("invalid left operand")
	}
	rightNode, ok := n.Right.(tsl.Node)
	if !ok {
		return "", nil, errors.SPARQLParseError("invalid right operand")
	}

	leftSQL, leftArgs, err := nodeToSQL(leftNode)
	if err != nil {
		return "", nil, err
	}
	rightSQL, rightArgs, err := nodeToSQL(rightNode)
	if err != nil {
		return "", nil, err
	}

	sqlStr := fmt.Sprintf("%s %s %s", leftSQL, sqlOp, rightSQL)
	return sqlStr, append(leftArgs, rightArgs...), nil
}

func joinOp(n tsl.Node, sqlOp string) (string, []interface{}, *errors.Error) {
	leftNode, ok := n.Left.(tsl.Node)
	if !ok {
		return "", nil, errors.SPARQLParseError("invalid left operand")
	}
	rightNode, ok := n.Right.(tsl.Node)
	if !ok {
		return "", nil, errors.SPARQLParseError("invalid right operand")
	}

	leftSQL, leftArgs, err := nodeToSQL(leftNode)
	if err != nil {
		return "", nil, err
	}
	rightSQL, rightArgs, err := nodeToSQL(rightNode)
	if err != nil {
		return "", nil, err
	}

	sqlStr := fmt.Sprintf("(%s %s %s)", leftSQL, sqlOp, rightSQL)
	return sqlStr, append(leftArgs, rightArgs...), nil
}

func inOp(n tsl.Node) (string, []interface{}, *errors.Error) {
	leftNode, ok := n.Left.(tsl.Node)
	if !ok {
		return "", nil, errors.SPARQLParseError("invalid left operand for IN")
	}
	if leftNode.Func != tsl.IdentOp {
		return "", nil, errors.SPARQLParseError("IN requires an identifier on its left hand side")
	}
	leftSQL, _, err := nodeToSQL(leftNode)
	if err != nil {
		return "", nil, err
	}

	rightNodes, ok := n.Right.([]tsl.Node)
	if !ok {
		return "", nil, errors.SPARQLParseError("IN requires a list of values")
	}

	values := make([]interface{}, 0, len(rightNodes))
	for _, rn := range rightNodes {
		if rn.Func != tsl.StringOp && rn.Func != tsl.NumberOp && rn.Func != tsl.BooleanOp {
			return "", nil, errors.SPARQLParseError("IN list entries must be literal values")
		}
		values = append(values, rn.Left)
	}

	return fmt.Sprintf("%s IN (?)", leftSQL), []interface{}{values}, nil
}
