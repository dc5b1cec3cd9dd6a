// Package ui renders kegs output for people and for scripts.
//
// A Printer writes in one of three formats. Terminal output is styled
// with lipgloss using the semantic styles in styles.yaml and shows pterm
// progress bars and spinners; text output is the same content without
// styling or animation; JSON output emits one document per call. Auto
// picks terminal or text from the destination, honouring NO_COLOR.
package ui
