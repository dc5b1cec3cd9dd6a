// Package formula reads resolved formula records.
//
// Records arrive as JSON in the shape served by the Homebrew formula API:
// one object per formula, or an array of them for a whole index. The
// native encoding of types.Formula is accepted as well.
package formula
