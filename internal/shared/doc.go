// Package shared groups helpers that belong to no single layer. Its testutil
// subpackage is imported only from _test.go files.
package shared
