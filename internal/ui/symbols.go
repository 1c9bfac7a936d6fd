package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Check passed
	SymbolFail     = "✗" // Check failed
	SymbolPending  = "○" // Not evaluated
	SymbolComplete = "●" // Done, colored by outcome
	SymbolWarning  = "⚠"
	SymbolAlert    = "▲" // Threshold breached
)
