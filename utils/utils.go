// Package utils provides utility functions for the application.
package utils

import "math"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// Deref returns the pointed-to value, or the zero value for a nil pointer
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Round1 rounds to one decimal place. Rates in dashboards are reported
// with a single decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
