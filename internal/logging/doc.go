// Package logging sets up structured JSON logging with size-based rotation.
// Logs go to ~/.buscador/logs/buscador.log by default, optionally tee'd to
// stderr. In MCP stdio mode stderr is never written.
package logging
