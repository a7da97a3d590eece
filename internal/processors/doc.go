// Package processors provides reference processors used by the CLI and by
// end-to-end tests of the regression engine.
package processors
