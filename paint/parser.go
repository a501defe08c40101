package paint

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	paintLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Hex", Pattern: `#[0-9A-Fa-f]+`},
		{Name: "Angle", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:deg|grad|rad|turn)`},
		{Name: "Percent", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)%`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)`},
		{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9-]*`},
		{Name: "Punct", Pattern: `[(),/]`},
	})

	paintParser = participle.MustBuild[paintExpr](
		participle.Lexer(paintLexer),
		participle.Elide("Whitespace"),
		participle.CaseInsensitive("Ident"),
	)
)

// paintExpr 是背景/文字颜色表达式的根节点。
type paintExpr struct {
	Gradient *gradientExpr `parser:"  @@"`
	Color    *colorExpr    `parser:"| @@"`
}

// gradientExpr 对应 linear-gradient(<direction>?, <stop>, ...)。
type gradientExpr struct {
	Direction *directionExpr `parser:"'linear-gradient' '(' ( @@ ',' )?"`
	Stops     []*stopExpr    `parser:"@@ ( ',' @@ )* ')'"`
}

type directionExpr struct {
	Angle string   `parser:"  @Angle"`
	To    []string `parser:"| 'to' @Ident+"`
}

type stopExpr struct {
	Color  *colorExpr `parser:"@@"`
	Offset string     `parser:"@Percent?"`
}

type colorExpr struct {
	Hex  string    `parser:"  @Hex"`
	Func *funcExpr `parser:"| @@"`
	Name string    `parser:"| @Ident"`
}

// funcExpr 覆盖 rgb()/rgba()/hsl()/hsla()，同时接受逗号与空格分隔写法。
type funcExpr struct {
	Name string   `parser:"@('rgb' | 'rgba' | 'hsl' | 'hsla') '('"`
	Args []string `parser:"@(Number | Percent | Angle) ( (',' | '/')? @(Number | Percent | Angle) )* ')'"`
}

func parseExpr(s string) (*paintExpr, error) {
	expr, err := paintParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("解析颜色 %q 失败: %w", s, err)
	}
	return expr, nil
}
