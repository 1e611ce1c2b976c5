// Package sqlguard decides whether a statement proposed by the model may be
// executed. Only a single SELECT (or WITH ... SELECT) statement passes.
package sqlguard

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrEmptyQuery         = errors.New("query is required")
	ErrNotReadOnly        = errors.New("only SELECT / CTE queries are allowed")
	ErrMultipleStatements = errors.New("only a single statement is allowed")
)

// Syntax selects the quoting and comment rules used to tokenize a query.
// The zero value, Strict, accepts a query only if every other syntax does.
type Syntax int

const (
	Strict Syntax = iota
	TSQL
	PostgreSQL
	SQLite
)

// forbidden keywords anywhere outside literals, comments, and quoted names.
// INTO covers SELECT ... INTO, which creates a table on SQL Server.
var forbidden = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {}, "ALTER": {},
	"CREATE": {}, "TRUNCATE": {}, "MERGE": {}, "EXEC": {}, "EXECUTE": {},
	"GRANT": {}, "REVOKE": {}, "DENY": {}, "INTO": {}, "BACKUP": {},
	"RESTORE": {}, "SHUTDOWN": {}, "DBCC": {}, "ATTACH": {}, "DETACH": {},
	"PRAGMA": {}, "VACUUM": {}, "COPY": {}, "CALL": {},
}

// Check validates raw under syntax and returns it trimmed, with any trailing
// semicolons removed.
func Check(raw string, syntax Syntax) (string, error) {
	query := strings.TrimSpace(raw)
	for strings.HasSuffix(query, ";") {
		query = strings.TrimSpace(strings.TrimSuffix(query, ";"))
	}
	if query == "" {
		return "", ErrEmptyQuery
	}

	syntaxes := []Syntax{syntax}
	if syntax == Strict {
		syntaxes = []Syntax{TSQL, PostgreSQL, SQLite}
	}
	for _, s := range syntaxes {
		if err := check(query, rulesFor(s)); err != nil {
			return "", err
		}
	}
	return query, nil
}

func check(query string, rl rules) error {
	words, statements, err := scan(query, rl)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return ErrEmptyQuery
	}
	if statements > 1 {
		return ErrMultipleStatements
	}

	first := words[0]
	if first != "SELECT" && first != "WITH" {
		return fmt.Errorf("%w: statement starts with %s", ErrNotReadOnly, first)
	}
	for _, w := range words {
		if _, bad := forbidden[w]; bad {
			return fmt.Errorf("%w: %s is not permitted", ErrNotReadOnly, w)
		}
	}
	return nil
}

// rules describe how one dialect quotes names and literals.
type rules struct {
	brackets       bool // [name]
	bracketEscape  bool // ]] inside [name]
	backticks      bool // `name`
	dollarQuotes   bool // $tag$ ... $tag$
	nestedComments bool
	noBackslash    bool // reject \ inside '...', where E'' strings would treat it as an escape
	highBitIdent   bool // every non-ASCII rune is an identifier character
}

func rulesFor(s Syntax) rules {
	switch s {
	case TSQL:
		return rules{brackets: true, bracketEscape: true, nestedComments: true}
	case PostgreSQL:
		return rules{dollarQuotes: true, nestedComments: true, noBackslash: true, highBitIdent: true}
	default:
		return rules{brackets: true, backticks: true}
	}
}

type state int

const (
	plain state = iota
	singleQuoted
	doubleQuoted
	bracketed
	backticked
	dollarQuoted
	lineComment
	blockComment
)

var unterminated = map[state]string{
	singleQuoted: "string literal",
	doubleQuoted: "quoted identifier",
	bracketed:    "bracketed identifier",
	backticked:   "quoted identifier",
	dollarQuoted: "dollar-quoted string",
	blockComment: "block comment",
}

func isIdentStart(r rune, highBit bool) bool {
	if r >= 0x80 {
		return highBit || unicode.IsLetter(r)
	}
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// scan returns the upper-cased bare words of query and the number of
// non-empty statements separated by semicolons. Input that leaves a quote or
// block comment open is rejected.
func scan(query string, rl rules) ([]string, int, error) {
	var (
		words      []string
		word       strings.Builder
		st         = plain
		depth      = 0
		tag        = ""
		statements = 0
		hasContent = false
	)
	runes := []rune(query)

	flush := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch st {
		case singleQuoted:
			if r == '\\' && rl.noBackslash {
				return nil, 0, fmt.Errorf("%w: backslash in string literal", ErrNotReadOnly)
			}
			if r == '\'' {
				if next == '\'' {
					i++
					continue
				}
				st = plain
			}
			continue
		case doubleQuoted:
			if r == '"' {
				st = plain
			}
			continue
		case bracketed:
			if r == ']' {
				if rl.bracketEscape && next == ']' {
					i++
					continue
				}
				st = plain
			}
			continue
		case backticked:
			if r == '`' {
				st = plain
			}
			continue
		case dollarQuoted:
			if r == '$' && strings.HasPrefix(string(runes[i:]), tag) {
				i += len([]rune(tag)) - 1
				st = plain
			}
			continue
		case lineComment:
			if r == '\r' && next != '\n' {
				return nil, 0, fmt.Errorf("%w: bare carriage return in comment", ErrNotReadOnly)
			}
			if r == '\n' {
				st = plain
			}
			continue
		case blockComment:
			switch {
			case r == '*' && next == '/':
				i++
				depth--
				if depth == 0 {
					st = plain
				}
			case r == '/' && next == '*' && rl.nestedComments:
				i++
				depth++
			}
			continue
		}

		switch {
		case r == '-' && next == '-':
			flush()
			st = lineComment
			i++
		case r == '/' && next == '*':
			flush()
			st = blockComment
			depth = 1
			i++
		case r == '\'':
			flush()
			st = singleQuoted
			hasContent = true
		case r == '"':
			flush()
			st = doubleQuoted
			hasContent = true
		case r == '[' && rl.brackets:
			flush()
			st = bracketed
			hasContent = true
		case r == '`':
			if !rl.backticks {
				return nil, 0, fmt.Errorf("%w: unexpected backtick", ErrNotReadOnly)
			}
			flush()
			st = backticked
			hasContent = true
		case r == '$' && word.Len() > 0:
			word.WriteRune(r)
		case r == '$' && rl.dollarQuotes:
			flush()
			hasContent = true
			if t, ok := dollarTag(runes[i:]); ok {
				tag = t
				st = dollarQuoted
				i += len([]rune(t)) - 1
			}
		case r == ';':
			flush()
			if hasContent {
				statements++
				hasContent = false
			}
		case isIdentStart(r, rl.highBitIdent):
			word.WriteRune(r)
			hasContent = true
		case unicode.IsDigit(r) && word.Len() > 0:
			word.WriteRune(r)
		default:
			flush()
			if !unicode.IsSpace(r) {
				hasContent = true
			}
		}
	}

	if what, open := unterminated[st]; open {
		return nil, 0, fmt.Errorf("%w: unterminated %s", ErrNotReadOnly, what)
	}
	flush()
	if hasContent {
		statements++
	}
	return words, statements, nil
}

// dollarTag reports the opening $tag$ or $$ at the start of rs. A $ followed
// by a digit is a bind parameter, not a tag.
func dollarTag(rs []rune) (string, bool) {
	for j := 1; j < len(rs); j++ {
		r := rs[j]
		switch {
		case r == '$':
			return string(rs[:j+1]), true
		case isIdentStart(r, true):
		case j > 1 && r >= '0' && r <= '9':
		default:
			return "", false
		}
	}
	return "", false
}
