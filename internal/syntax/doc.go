// Package syntax turns query text into a syntax tree.
//
// The pipeline is Decode (percent-escapes, UTF-8 validation, NFC), Scan
// (context-sensitive tokenizer that also injects the DIRSIG, PIPESIG and
// LHSSIG signal tokens) and Parse (precedence-climbing recursive descent).
// Every node carries the Mark of the text it was parsed from.
//
// Operator precedence, loosest first:
//
//	assignment  x := y
//	pipe        x/:f
//	flow pipe   x :f(...)
//	flow        x?y  x^y  x{...}  x+  x-
//	disjunction x|y
//	conjunction x&y
//	negation    !x
//	comparison  = != == !== < <= > >= ~ !~
//	addition    + -
//	multiply    * /
//	unary       +x -x
//	link        x -> y
//	composition x.y
//	location    x[id]
//	attachment  x@y
//	atom        names, literals, calls, /x, (...), {...}, [...], $x, *, ^
package syntax
