// Package integration_tests holds end-to-end tests that drive a full App
// against a temporary project tree.
package integration_tests
