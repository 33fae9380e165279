// Package errors provides the structured error type used across taskflow.
// Every error carries a machine-readable code so callers can tell a graph
// configuration defect from a process failure or a postcondition miss
// without matching on message text.
package errors
