// This file contains the logic for parsing parameter type expressions (e.g.
// `file`, `optional(number)`) into a Kind and an optional flag.

package catalog

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
)

// typeExprToKind converts an HCL type expression into its Kind and reports
// whether it was wrapped in optional().
func typeExprToKind(ctx context.Context, expr hcl.Expression) (Kind, bool, error) {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return "", false, fmt.Errorf("missing type expression")
	}

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		logger.Debug("Parsing type expression as a function call.", "call", v.Name)
		if v.Name != "optional" {
			return "", false, fmt.Errorf("unknown type constructor function %q", v.Name)
		}
		if len(v.Args) != 1 {
			return "", false, fmt.Errorf("the optional() type constructor requires exactly one argument, got %d", len(v.Args))
		}
		if _, nested := v.Args[0].(*hclsyntax.FunctionCallExpr); nested {
			return "", false, fmt.Errorf("optional() must wrap a primitive kind")
		}
		kind, _, err := typeExprToKind(ctx, v.Args[0])
		if err != nil {
			return "", false, err
		}
		return kind, true, nil

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return "", false, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		rootName := v.Traversal.RootName()
		logger.Debug("Parsing type expression as a primitive.", "keyword", rootName)
		switch Kind(rootName) {
		case KindString, KindNumber, KindBool, KindFile, KindDir:
			return Kind(rootName), false, nil
		default:
			return "", false, fmt.Errorf("unknown parameter kind %q", rootName)
		}

	default:
		return "", false, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}
