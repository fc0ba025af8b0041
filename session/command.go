package session

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Command is the textual form of one session edit or run action, e.g.
//
//	add
//	remove cell-2
//	connect cell-1 cell-3
//	disconnect cell-1 cell-3
//	code cell-2 "y = x * 2"
//	run
//	run all
//	run cell-3
//
// remove and run fall back to the current selection when no cell is named.
type Command struct {
	Add        bool     `  @"add"`
	Remove     bool     `| @"remove"`
	RemoveID   string   `  @Ident?`
	Connect    *PairRef `| "connect" @@`
	Disconnect *PairRef `| "disconnect" @@`
	Code       *CodeArg `| "code" @@`
	Run        bool     `| @"run"`
	RunAll     bool     `  ( @"all"`
	RunID      string   `  | @Ident )?`
}

type PairRef struct {
	Source string `@Ident`
	Target string `@Ident`
}

type CodeArg struct {
	ID   string `@Ident`
	Code string `@String`
}

// Cell ids carry a hyphen, so the default lexer would split them.
var commandLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_\-]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parseCommand = participle.MustBuild[Command](
	participle.Lexer(commandLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// ParseCommand parses one command line.
func ParseCommand(line string) (*Command, error) {
	return parseCommand.ParseString("", line)
}
