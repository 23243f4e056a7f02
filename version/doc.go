// Package version carries build version information for the client's
// User-Agent.
package version
