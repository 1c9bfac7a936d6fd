// Package ui provides the terminal styling shared by vigil's commands.
//
// Colors are ANSI codes rendered through Lip Gloss. ConfigureColors picks a
// termenv profile for the output stream and falls back to plain text for
// --no-color, NO_COLOR, and anything that is not a terminal.
//
//	ColorSuccess (green)  - passing checks, values within limits
//	ColorError   (red)    - failures and breached thresholds
//	ColorWarning (yellow) - warnings
//	ColorMuted   (gray)   - suggestions, absent readings
//
// RenderReadings draws the table printed by 'vigil check'.
package ui
