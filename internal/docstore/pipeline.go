package docstore

// Pipeline は集約ステージの並び。先頭から順に適用される。
type Pipeline []Stage

// Stage は集約パイプラインの1段階を表す。
// 実装はこのパッケージ内のMatch、Lookup、LookupCount、AddFields、Projectに限られる。
type Stage interface {
	stage()
}

// Match はフィルタに一致するドキュメントだけを残す。
// パイプライン先頭のMatchはFinderへの検索条件として渡される。
type Match struct {
	Filter Filter
}

// Lookup は別コレクションを左外部結合する。
// 入力ドキュメントの LocalField と From コレクションの ForeignField が等しいドキュメントを
// 配列として As フィールドに格納する。一致がない場合は空配列になる。
// Filter が指定された場合、結合対象はその条件も満たすものに限られる。
// Pipeline が指定された場合、結合結果の各ドキュメントに適用される。
type Lookup struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Filter       Filter
	Pipeline     Pipeline
}

// LookupCount はLookupの結果にSizeを適用した値だけを As フィールドに格納する。
// FinderがCounterを実装していれば、結合対象の行は読み出されない。
type LookupCount struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
}

// AddFields は式を評価してフィールドを追加または上書きする。
// 式がnilに評価された場合、そのフィールドは出力から取り除かれる。
type AddFields struct {
	Fields map[string]Expr
}

// Project は指定フィールドと_idだけを残す。
type Project struct {
	Fields []string
}

func (Match) stage()       {}
func (Lookup) stage()      {}
func (LookupCount) stage() {}
func (AddFields) stage()   {}
func (Project) stage()     {}

// Expr はAddFieldsで評価される式。
type Expr interface {
	eval(d Document) any
}

type sizeExpr struct{ path string }

type inExpr struct {
	value any
	path  string
}

type arrayElemAtExpr struct {
	path  string
	index int
}

type literalExpr struct{ value any }

// Size はパスが指す配列の要素数を返す式。配列でない場合は0。
func Size(path string) Expr { return sizeExpr{path: path} }

// IsIn はパスが指す値（配列を展開したもの）にvalueが含まれるかを返す式。
// valueがnilの場合は常にfalse。
func IsIn(value any, path string) Expr { return inExpr{value: value, path: path} }

// ArrayElemAt はパスが指す配列のindex番目の要素を返す式。
// 範囲外の場合はnilとなり、フィールドは出力されない。負のindexは末尾から数える。
func ArrayElemAt(path string, index int) Expr { return arrayElemAtExpr{path: path, index: index} }

// Literal は固定値を返す式。
func Literal(v any) Expr { return literalExpr{value: v} }

func (e sizeExpr) eval(d Document) any {
	v, _ := valueAt(d, e.path)
	return lengthOf(v)
}

func (e inExpr) eval(d Document) any {
	if e.value == nil {
		return false
	}
	for _, got := range valuesAt(d, e.path) {
		if equal(got, e.value) {
			return true
		}
	}
	return false
}

func (e arrayElemAtExpr) eval(d Document) any {
	v, _ := valueAt(d, e.path)
	var elems []any
	switch v.(type) {
	case []Document, []string, []any:
		elems = flatten(v)
	default:
		return nil
	}
	i := e.index
	if i < 0 {
		i += len(elems)
	}
	if i < 0 || i >= len(elems) {
		return nil
	}
	return elems[i]
}

func (e literalExpr) eval(Document) any { return e.value }
