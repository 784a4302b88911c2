package fetchxml

import (
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// decomposeJoinOn requires the ON condition to be exactly two column
// references compared with '='; anything else can't be expressed as a
// FetchXML link-entity and is an InvalidRequest.
// Returns (xmlFrom, xmlTo): xmlFrom is the column on the joined
// (child/link) entity, xmlTo is the column on the outer side.
func decomposeJoinOn(on ast.Condition, joinKey string) (string, string, error) {
	cmp, ok := on.(*ast.Comparison)
	if !ok || cmp.Op != "=" {
		return "", "", queryerr.ErrInvalidRequest.New("join ON clause must be a single column = column equality")
	}
	left, lok := cmp.Left.(*ast.Column)
	right, rok := cmp.Right.(*ast.Column)
	if !lok || !rok {
		return "", "", queryerr.ErrInvalidRequest.New("join ON clause must compare two column references")
	}
	key := strings.ToLower(joinKey)
	switch {
	case strings.ToLower(left.Qualifier) == key:
		return left.Name, right.Name, nil
	case strings.ToLower(right.Qualifier) == key:
		return right.Name, left.Name, nil
	default:
		// Neither side is qualified with the joined table's alias; fall
		// back to treating the left operand as the child-side column.
		return left.Name, right.Name, nil
	}
}
