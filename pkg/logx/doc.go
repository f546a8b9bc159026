// Package logx is a thin zerolog wrapper shared by every autokit component.
//
// It exists for two reasons: loggers stay live across runtime reconfiguration
// (Service.Apply swaps levels and outputs under running goroutines), and call
// sites get a fixed, small field vocabulary instead of the full zerolog
// builder API.
package logx
