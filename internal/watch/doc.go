// Package watch maps file-system changes under the app root onto task runs
// and live-reload events.
//
// A Dispatcher evaluates an ordered rule table against each changed path;
// every matching rule fires. Task runs go through a Queue that allows at most
// one run per task at a time and coalesces triggers that arrive mid-run into
// a single follow-up.
package watch
