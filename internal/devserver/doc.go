// Package devserver is the development HTTP server. It serves the app root
// as static files, injects a live-reload client into HTML pages and pushes
// reload and style-injection events to connected browsers over socket.io.
//
// A single Server is shared by every task that needs to notify browsers; it
// is handed to them as a task.Notifier and can therefore be replaced with a
// fake in tests.
package devserver
