// Package testutil provides the demo school database shared by the tests
// of the pipeline packages.
package testutil
