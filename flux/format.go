package flux

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator precedence for parenthesization.
const (
	precSum = iota + 1
	precProduct
	precLeaf
)

// Format renders n as a compact single-line expression. The rendering is
// deterministic and is used in golden files; changing it invalidates them.
func Format(n Node) string {
	return format(n, 0)
}

func format(n Node, enclosing int) string {
	switch n := n.(type) {
	case *Const:
		return strconv.FormatFloat(n.value, 'g', -1, 64)
	case *Normal:
		return fmt.Sprintf("Normal[%d]", n.axis)
	case *FieldComponent:
		if n.interior {
			return fmt.Sprintf("Int[%d]", n.index)
		}
		return fmt.Sprintf("Ext[%d]", n.index)
	case *PenaltyTerm:
		return fmt.Sprintf("Penalty(%s)", strconv.FormatFloat(n.power, 'g', -1, 64))
	case *IfPositive:
		return fmt.Sprintf("IfPositive(%s, %s, %s)",
			format(n.criterion, 0), format(n.then, 0), format(n.els, 0))
	case *Sum:
		parts := make([]string, len(n.terms))
		for i, t := range n.terms {
			parts[i] = format(t, precSum)
		}
		return paren(strings.Join(parts, " + "), precSum, enclosing)
	case *Product:
		parts := make([]string, len(n.factors))
		for i, f := range n.factors {
			parts[i] = format(f, precProduct)
		}
		return paren(strings.Join(parts, "*"), precProduct, enclosing)
	}
	return fmt.Sprintf("<unknown %T>", n)
}

func paren(s string, prec, enclosing int) string {
	if prec < enclosing {
		return "(" + s + ")"
	}
	return s
}
