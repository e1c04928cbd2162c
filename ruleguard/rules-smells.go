package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Consecutive guards returning the same value can be merged.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// fmt.Errorf without a verb carries no dynamic content.
	m.Match(`fmt.Errorf($msg)`).
		Where(m["msg"].Const).
		Report(`fmt.Errorf with a constant message; use errors.New`).
		Suggest(`errors.New($msg)`)

	// Handlers must propagate the request context, not mint a fresh one.
	m.Match(`$_.QueryContext(context.Background(), $*_)`,
		`$_.ExecContext(context.Background(), $*_)`,
		`$_.QueryRowContext(context.Background(), $*_)`).
		Where(m.File().PkgPath.Matches(`internal/api`)).
		Report(`use the request context instead of context.Background() in handlers`)
}
