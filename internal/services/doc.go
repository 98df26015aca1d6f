// Package services holds cross-cutting helpers for the external tool clients:
// a sentinel error taxonomy that separates broken invocations from bad data
// samples, and context carriers for run/speaker/sample identity in logs.
package services
