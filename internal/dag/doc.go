// Package dag is the execution layer of the task runner. It compiles a
// pipeline composition (series and parallel groups of task references) into
// a directed acyclic graph of task nodes and executes the nodes concurrently
// with a worker pool, unlocking each node only when all of its dependencies
// have completed.
package dag
