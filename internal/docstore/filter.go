package docstore

// Op はフィルタ条件の演算子を表す。
type Op int

const (
	// OpEq はフィールドが値と等しいことを表す。
	OpEq Op = iota
	// OpIn はフィールドが値のいずれかと等しいことを表す。
	OpIn
)

// Cond は1フィールドに対する条件。
// 配列フィールドに対してはいずれかの要素が一致すれば真となる。
type Cond struct {
	Field  string
	Op     Op
	Values []any
}

// Filter は条件の論理積。空のFilterは全件に一致する。
type Filter []Cond

// Eq はfield = value の条件を生成する。
func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Values: []any{value}}
}

// In はfieldがvaluesのいずれかと等しい条件を生成する。
func In(field string, values ...any) Cond {
	return Cond{Field: field, Op: OpIn, Values: values}
}

// Matches はドキュメントがすべての条件を満たすかを返す。
func (f Filter) Matches(d Document) bool {
	for _, c := range f {
		if !c.matches(d) {
			return false
		}
	}
	return true
}

func (c Cond) matches(d Document) bool {
	for _, got := range valuesAt(d, c.Field) {
		for _, want := range c.Values {
			if equal(got, want) {
				return true
			}
		}
	}
	return false
}
