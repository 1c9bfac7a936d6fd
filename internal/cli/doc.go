// Package cli implements vigil's cobra commands.
//
// 'vigil run' is the daemon. 'check', 'doctor', 'init' and 'config' help set
// it up and confirm which metric sources work on the machine.
package cli
