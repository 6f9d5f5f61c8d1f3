// Package outcome はコイン単位の処理結果を表します。
// バッチ処理で1コインの失敗が他のコインを止めないよう、結果を順序付きで集めます。
package outcome

// Outcome は1コイン分の処理結果です。Err が nil の場合のみ Value が有効です。
type Outcome[T any] struct {
	Coin  string
	Value T
	Err   error
}

// OK は処理が成功したかを返します。
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Succeeded は成功した結果のみを順序を保って返します。
func Succeeded[T any](outs []Outcome[T]) []Outcome[T] {
	res := make([]Outcome[T], 0, len(outs))
	for _, o := range outs {
		if o.OK() {
			res = append(res, o)
		}
	}
	return res
}

// Failed は失敗した結果のみを順序を保って返します。
func Failed[T any](outs []Outcome[T]) []Outcome[T] {
	res := make([]Outcome[T], 0)
	for _, o := range outs {
		if !o.OK() {
			res = append(res, o)
		}
	}
	return res
}

// Coins は結果のコイン名を順に返します。
func Coins[T any](outs []Outcome[T]) []string {
	res := make([]string, 0, len(outs))
	for _, o := range outs {
		res = append(res, o.Coin)
	}
	return res
}
