// Package shell parses command text into an engine-owned AST and tracks how
// well variable values are known as the tree is walked. Parsing is built on
// mvdan.cc/sh/v3 (bash variant, a superset of the POSIX scope); the converted
// tree keeps byte-offset spans into the original text so diagnostics can
// point at the offending substring.
package shell

// Span is a byte-offset range [Start, End) into the original command text.
type Span struct {
	Start int
	End   int
}

// Program is a parsed command: an ordered sequence of statements.
type Program struct {
	Stmts []*Stmt
}

// Stmt is one top-level or nested statement.
type Stmt struct {
	Cmd        Command
	Redirs     []*Redirect
	Background bool
	Span       Span
}

// Command is the node inside a statement: a simple command, a pipeline, a
// logical connection, or a compound construct.
type Command interface {
	isCommand()
}

// SimpleCommand is a single command invocation: optional leading assignments,
// the argv words, and any redirections.
type SimpleCommand struct {
	Assigns []*Assign
	Words   []*Word
	Redirs  []*Redirect
	Span    Span
}

// Pipeline is two or more statements connected left-to-right by |.
type Pipeline struct {
	Cmds []*Stmt
	Span Span
}

// Connection is a && or || pair. Op is "&&" or "||".
type Connection struct {
	Op    string
	Left  *Stmt
	Right *Stmt
	Span  Span
}

// CompoundKind discriminates Compound nodes.
type CompoundKind string

const (
	CompoundIf       CompoundKind = "if"
	CompoundFor      CompoundKind = "for"
	CompoundWhile    CompoundKind = "while"
	CompoundCase     CompoundKind = "case"
	CompoundSubshell CompoundKind = "subshell"
	CompoundBlock    CompoundKind = "block"
)

// Compound is an if/for/while/case construct, a subshell, or a brace block.
// Cond holds condition statements that always execute before any branch is
// chosen; Branches holds the mutually exclusive arms (then/elif/else bodies,
// case items) or the single loop/block body.
type Compound struct {
	Kind     CompoundKind
	Cond     []*Stmt
	Branches [][]*Stmt
	Selector *Word // case selector word, nil otherwise
	LoopVar  string
	Span     Span
}

func (*SimpleCommand) isCommand() {}
func (*Pipeline) isCommand()      {}
func (*Connection) isCommand()    {}
func (*Compound) isCommand()      {}

// Assign is a NAME=value assignment. Value is nil for a bare NAME=.
type Assign struct {
	Name  string
	Value *Word
	Span  Span
}

// Redirect is a redirection operator and its target word.
type Redirect struct {
	Op     string
	Target *Word
	Span   Span
}

// Word is one shell word, kept both as source text and as a part list that
// the variable context can resolve.
type Word struct {
	Raw   string
	Parts []WordPart
	Span  Span
}

// WordPart is one component of a word.
type WordPart interface {
	isWordPart()
}

// Lit is constant text: unquoted literals and quoted strings.
type Lit struct {
	Text string
}

// Param is a parameter expansion ($VAR, ${VAR}, ${VAR:-default}).
type Param struct {
	Name       string
	Default    string
	HasDefault bool
}

// Subst is a command substitution. Prog is nil when the substitution sits
// deeper than the configured nesting bound.
type Subst struct {
	Prog *Program
	Raw  string
}

// Opaque is a part the engine does not model (arithmetic, process
// substitution, globs). It always resolves to Unknown.
type Opaque struct {
	Raw string
}

func (*Lit) isWordPart()    {}
func (*Param) isWordPart()  {}
func (*Subst) isWordPart()  {}
func (*Opaque) isWordPart() {}

// Static returns the word's constant text when every part is literal.
func (w *Word) Static() (string, bool) {
	var out []byte
	for _, p := range w.Parts {
		lit, ok := p.(*Lit)
		if !ok {
			return "", false
		}
		out = append(out, lit.Text...)
	}
	return string(out), true
}

// HasSubst reports whether the word contains a command substitution.
func (w *Word) HasSubst() bool {
	for _, p := range w.Parts {
		if _, ok := p.(*Subst); ok {
			return true
		}
	}
	return false
}
