// Package observability provides structured logging and the console's audit
// log. Diagnostic output goes through zerolog; every mutation the console
// performs (and every action it refuses) is appended to a JSON Lines audit
// file that can be read back and summarised on demand.
package observability
