// Package reader turns a byte stream into the object graphs the evaluator
// consumes: a single-character-lookahead tokenizer feeding a recursive
// descent parser for dotted-pair S-expression syntax.
//
// Grounded on asm/parser.go in this module's teacher (struct-held scanner
// state, one token of lookahead, position-tagged diagnostics) and on
// read_token/lisp_read_obj/lisp_read_list in the reference C interpreter
// this module implements (the token-driven recursive functions below have
// the same shape, parameter for parameter).
package reader

import (
	"io"

	"github.com/pkg/errors"

	"github.com/krig/LISP/heap"
	"github.com/krig/LISP/symbol"
)

const maxToken = 256

// Pos locates a diagnostic in the source a Reader is consuming.
type Pos struct {
	Name string
	Line int
	Col  int
}

func (p Pos) String() string {
	return p.Name + ":" + itoa(p.Line) + ":" + itoa(p.Col)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// SyntaxError is a recoverable reader diagnostic: spec.md requires that a
// malformed dotted list or a stray ')' produce a message and a null
// result, not a fatal abort.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// ErrTokenTooLong is fatal: an atom ran past the fixed token buffer.
var ErrTokenTooLong = errors.New("reader: token exceeds buffer size")

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// isAtomChar matches spec's atom-character alphabet: printable ASCII in
// '!'..'\'' and '*'..'~', i.e. everything printable except space and the
// parens.
func isAtomChar(b byte) bool {
	return (b >= '!' && b <= '\'') || (b >= '*' && b <= '~')
}

type tokenKind int

const (
	tokAtom tokenKind = iota
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	id   symbol.ID
	text string
}

// Reader consumes bytes from src and produces object graphs in h, interning
// atom text into syms as it goes.
type Reader struct {
	src  io.ByteScanner
	name string
	h    *heap.Heap
	syms *symbol.Table
	line int
	col  int
}

// New returns a Reader over src. name identifies src in diagnostics (a
// file name, or "stdin").
func New(src io.ByteScanner, name string, h *heap.Heap, syms *symbol.Table) *Reader {
	return &Reader{src: src, name: name, h: h, syms: syms, line: 1, col: 0}
}

func (r *Reader) pos() Pos {
	return Pos{Name: r.name, Line: r.line, Col: r.col}
}

// readByte reads one byte, tracking line/column, matching the C reader's
// get_char.
func (r *Reader) readByte() (byte, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	if b == '\n' {
		r.line++
		r.col = 0
	} else {
		r.col++
	}
	return b, nil
}

// unreadByte pushes the last byte back, matching put_char's rewind.
func (r *Reader) unreadByte() error {
	if err := r.src.UnreadByte(); err != nil {
		return err
	}
	if r.col > 0 {
		r.col--
	}
	return nil
}

// nextToken reads the next token. Reaching EOF while expecting a token is
// reported as io.EOF, per spec's "terminates the process cleanly" — the
// decision of what "cleanly" means (exit code 0) belongs to the caller
// driving the top-level loop, the same division of labor the teacher's CLI
// uses when it treats io.EOF from vm.Run as a normal exit condition rather
// than an error.
func (r *Reader) nextToken() (token, error) {
	ch, err := r.readByte()
	for err == nil && isSpace(ch) {
		ch, err = r.readByte()
	}
	if err != nil {
		return token{}, err
	}
	if ch == '(' {
		return token{kind: tokLParen}, nil
	}
	if ch == ')' {
		return token{kind: tokRParen}, nil
	}
	if !isAtomChar(ch) {
		// Not whitespace, not a paren, not an atom character: spec treats
		// all remaining non-whitespace printable ASCII as atom characters,
		// so this can only be a non-printable stray byte. Skip it like
		// whitespace and keep scanning for a real token.
		return r.nextToken()
	}
	var buf [maxToken]byte
	n := 0
	for err == nil && isAtomChar(ch) {
		if n == len(buf) {
			return token{}, ErrTokenTooLong
		}
		buf[n] = ch
		n++
		ch, err = r.readByte()
	}
	if err == nil {
		if uerr := r.unreadByte(); uerr != nil {
			return token{}, uerr
		}
	} else if err != io.EOF {
		return token{}, err
	}
	text := string(buf[:n])
	id := r.syms.Intern(text)
	return token{kind: tokAtom, id: id, text: text}, nil
}

// Read parses one top-level expression. It returns io.EOF when the
// underlying stream is exhausted before any token is read.
func (r *Reader) Read() (heap.Ref, error) {
	tok, err := r.nextToken()
	if err != nil {
		return heap.NilRef, err
	}
	if tok.kind == tokRParen {
		return heap.NilRef, &SyntaxError{Pos: r.pos(), Msg: "unexpected )"}
	}
	return r.readExpr(tok)
}

// readExpr builds the expression starting at tok: a list if tok opens one,
// otherwise a single atom. Mirrors lisp_read_obj(tok, in) in the reference
// interpreter.
func (r *Reader) readExpr(tok token) (heap.Ref, error) {
	if tok.kind == tokLParen {
		next, err := r.nextToken()
		if err != nil {
			return heap.NilRef, err
		}
		return r.readList(next)
	}
	return r.h.NewAtom(int32(tok.id))
}

// readList builds the list whose first element's token is tok (tok may
// already be the closing paren, for the empty list). Mirrors
// lisp_read_list(tok, in): read one expression, peek the next token, and
// either close a dotted pair, close a proper list, or recurse for the
// tail.
//
// Every intermediate Ref is protected for the duration of the recursive
// calls that follow it, since each of those calls may allocate and
// therefore collect.
func (r *Reader) readList(tok token) (heap.Ref, error) {
	if tok.kind == tokRParen {
		return heap.NilRef, nil
	}

	first, err := r.readExpr(tok)
	if err != nil {
		return heap.NilRef, err
	}

	var second, tail heap.Ref
	g := r.h.Protect(&first, &second, &tail)
	defer g.Pop()

	next, err := r.nextToken()
	if err != nil {
		return heap.NilRef, err
	}

	if next.kind == tokAtom && next.text == "." {
		dotTok, err := r.nextToken()
		if err != nil {
			return heap.NilRef, err
		}
		second, err = r.readExpr(dotTok)
		if err != nil {
			return heap.NilRef, err
		}
		term, err := r.nextToken()
		if err != nil {
			return heap.NilRef, err
		}
		if term.kind != tokRParen {
			return heap.NilRef, &SyntaxError{Pos: r.pos(), Msg: "malformed dotted list: expected )"}
		}
		return r.h.NewPair(first, second)
	}

	tail, err = r.readList(next)
	if err != nil {
		return heap.NilRef, err
	}
	return r.h.NewPair(first, tail)
}
