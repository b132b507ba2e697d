// Package testutil holds fixtures shared by package tests: log capture,
// file-tree builders and a recording notifier.
package testutil
