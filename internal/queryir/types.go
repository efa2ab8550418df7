package queryir

// Query selects recorded samples of one session.
type Query struct {
	Session string
	Filter  Predicate // nil selects every sample
	Limit   int       // 0 means no limit
}

// Predicate is a sealed interface for filter conditions.
type Predicate interface {
	predicateNode()
}

// Op is a numeric comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Valid reports whether o is one of the defined operators.
func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// VariableIs matches samples of exactly one qualified variable, for example
// "L:A32NX_ELEC_AC_1_BUS_IS_POWERED" or "A:BUS CONNECTION ON:2 (Bool)".
type VariableIs struct {
	Name string
}

func (VariableIs) predicateNode() {}

// VariableMatch matches variable names against a glob pattern.
// * matches any run of characters and ? matches one character.
type VariableMatch struct {
	Pattern string
}

func (VariableMatch) predicateNode() {}

// Compare compares the sample value with a constant.
//
//	Compare{Op: OpGt, Value: 0.5}  →  value > 0.5
type Compare struct {
	Op    Op
	Value float64
}

func (Compare) predicateNode() {}

// SeqRange matches ticks with From <= seq <= To. A zero To leaves the range
// open above.
type SeqRange struct {
	From int64
	To   int64
}

func (SeqRange) predicateNode() {}

// And is true when every predicate is true. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is true when at least one predicate is true.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// All joins predicates with And, dropping nils. A single predicate is
// returned unwrapped and no predicates give nil.
func All(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}
