// Package token defines the lexical vocabulary of ILOC listings.
//
// Newlines are significant: a label followed by a newline is a record on its
// own and stands for a nop at that label.
package token
