package sym

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fluxion-dg/fluxion/flux"
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

// FormatOp renders op with its short spelling.
func FormatOp(op Operator) string {
	switch op := op.(type) {
	case *Diff:
		return fmt.Sprintf("Diff%d", op.axis)
	case *MInvST:
		return fmt.Sprintf("MInvST%d", op.axis)
	case *Stiffness:
		return fmt.Sprintf("Stiff%d", op.axis)
	case *StiffnessT:
		return fmt.Sprintf("StiffT%d", op.axis)
	case *Mass:
		return "M"
	case *InverseMass:
		return "InvM"
	case *ElementwiseMax:
		return "ElWMax"
	case *Boundarize:
		return fmt.Sprintf("Boundarize<tag=%s>", op.tag)
	case *FluxExchange:
		return fmt.Sprintf("FExch<idx=%d,rank=%d>", op.index, op.rank)
	case *Flux:
		return fmt.Sprintf("Flux(%s)", flux.Format(op.formula))
	case *LiftingFlux:
		return fmt.Sprintf("Lift(%s)", flux.Format(op.formula))
	}
	return fmt.Sprintf("<unknown operator %T>", op)
}

func format(n Node, enclosing int) string {
	switch n := n.(type) {
	case *Var:
		return n.name
	case *Subscript:
		return format(n.agg, precLeaf) + "[" + strconv.Itoa(n.index) + "]"
	case *ScalarParam:
		return fmt.Sprintf("ScalarPar[%s]", n.name)
	case *Const:
		return strconv.FormatFloat(n.value, 'g', -1, 64)
	case *NormalComponent:
		return fmt.Sprintf("Normal<tag=%s>[%d]", n.tag, n.axis)
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
	case *Vector:
		parts := make([]string, len(n.comps))
		for i, c := range n.comps {
			parts[i] = format(c, 0)
		}
		return "Vector(" + strings.Join(parts, ", ") + ")"
	case *CSE:
		return fmt.Sprintf("CSE(%s)", format(n.child, 0))
	case *Binding:
		return fmt.Sprintf("<%s>(%s)", FormatOp(n.op), format(n.field, 0))
	case *BoundaryPair:
		return fmt.Sprintf("BPair(%s, %s, %s)", format(n.field, 0), format(n.bfield, 0), n.tag)
	case Operator:
		return FormatOp(n)
	}
	return fmt.Sprintf("<unknown %T>", n)
}

func paren(s string, prec, enclosing int) string {
	if prec < enclosing {
		return "(" + s + ")"
	}
	return s
}

var sectionRule = strings.Repeat("=", 75)

// PrettyPrint renders n with shared structure split out: common
// subexpressions, flux formulas, and boundary pairs are numbered and
// listed above the skeleton that references them. Repeated occurrences
// share a number, so the skeleton shows the evaluation structure rather
// than the expanded tree.
func PrettyPrint(n Node) string {
	p := &prettyPrinter{
		cseNames: map[Digest]string{},
		taken:    map[string]bool{},
		fluxNums: map[flux.Digest]int{},
		pairNums: map[Digest]int{},
	}
	skeleton := p.rec(n, 0)

	var b strings.Builder
	section := func(lines []string) {
		if len(lines) == 0 {
			return
		}
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteString(sectionRule)
		b.WriteByte('\n')
	}
	section(p.cseLines)
	section(p.fluxLines)
	section(p.pairLines)
	b.WriteString(skeleton)
	return b.String()
}

type prettyPrinter struct {
	cseNames map[Digest]string // keyed by the CSE child digest
	taken    map[string]bool
	cseLines []string

	fluxNums  map[flux.Digest]int
	fluxLines []string

	pairNums  map[Digest]int
	pairLines []string
}

func (p *prettyPrinter) rec(n Node, enclosing int) string {
	switch n := n.(type) {
	case *Subscript:
		return p.rec(n.agg, precLeaf) + "[" + strconv.Itoa(n.index) + "]"
	case *Sum:
		parts := make([]string, len(n.terms))
		for i, t := range n.terms {
			parts[i] = p.rec(t, precSum)
		}
		return paren(strings.Join(parts, " + "), precSum, enclosing)
	case *Product:
		parts := make([]string, len(n.factors))
		for i, f := range n.factors {
			parts[i] = p.rec(f, precProduct)
		}
		return paren(strings.Join(parts, "*"), precProduct, enclosing)
	case *Vector:
		parts := make([]string, len(n.comps))
		for i, c := range n.comps {
			parts[i] = p.rec(c, 0)
		}
		return "Vector(" + strings.Join(parts, ", ") + ")"
	case *CSE:
		return p.cseName(n)
	case *Binding:
		if op, ok := n.op.(FluxOp); ok {
			return fmt.Sprintf("<%s%d>(%s)",
				fluxKindName(op), p.fluxNumber(op.Formula()), p.rec(n.field, 0))
		}
		return fmt.Sprintf("<%s>(%s)", FormatOp(n.op), p.rec(n.field, 0))
	case *BoundaryPair:
		return fmt.Sprintf("BC%d@%s", p.pairNumber(n), n.tag)
	}
	return format(n, enclosing)
}

// cseName returns the name assigned to the marker's child, listing the
// child's rendering on first sight. Names are keyed by the child so
// markers that share a child share a name.
func (p *prettyPrinter) cseName(c *CSE) string {
	key := c.child.Digest()
	if name, ok := p.cseNames[key]; ok {
		return name
	}
	body := p.rec(c.child, 0)
	name := p.pickCSEName(c.prefix)
	p.cseNames[key] = name
	p.taken[name] = true
	p.cseLines = append(p.cseLines, name+" : "+body)
	return name
}

func (p *prettyPrinter) pickCSEName(prefix string) string {
	if prefix != "" {
		name := "CSE_" + prefix
		if !p.taken[name] {
			return name
		}
		for i := 2; ; i++ {
			cand := fmt.Sprintf("%s_%d", name, i)
			if !p.taken[cand] {
				return cand
			}
		}
	}
	for i := 0; ; i++ {
		cand := fmt.Sprintf("CSE%d", i)
		if !p.taken[cand] {
			return cand
		}
	}
}

func (p *prettyPrinter) fluxNumber(f flux.Node) int {
	key := f.Digest()
	if num, ok := p.fluxNums[key]; ok {
		return num
	}
	num := len(p.fluxNums)
	p.fluxNums[key] = num
	p.fluxLines = append(p.fluxLines, fmt.Sprintf("flux%d : %s", num, flux.Format(f)))
	return num
}

func (p *prettyPrinter) pairNumber(bp *BoundaryPair) int {
	key := bp.Digest()
	if num, ok := p.pairNums[key]; ok {
		return num
	}
	num := len(p.pairNums)
	p.pairNums[key] = num
	p.pairLines = append(p.pairLines, fmt.Sprintf("BC%d : BPair(%s, %s, %s)",
		num, p.rec(bp.field, 0), p.rec(bp.bfield, 0), bp.tag))
	return num
}

func fluxKindName(op FluxOp) string {
	if op.Lifting() {
		return "Lift"
	}
	return "Flux"
}
