// Package render turns poll results into the HTML fragments that fill the
// dashboard regions.
//
// Every fragment is a pure function of its input and fully replaces the
// region's previous content, so rendering the same result twice yields the
// same markup. All keys, values and error messages are HTML escaped.
package render
