// Package media provides shared constants and validation for source movie files
package media

import (
	"fmt"
	"strings"
)

// MovieExtensions contains the movie filename extensions accepted for import
var MovieExtensions = []string{"wmv", "mpg", "mov", "avi", "mp4", "MOV", "MP4"}

// HasMovieExtension checks if the given filename ends in one of the accepted extensions
func HasMovieExtension(filename string) bool {
	for _, ext := range MovieExtensions {
		if strings.HasSuffix(filename, "."+ext) {
			return true
		}
	}
	return false
}

// GetMovieExtensionsString returns a comma-separated string of accepted extensions for error messages
func GetMovieExtensionsString() string {
	return strings.Join(MovieExtensions, ", ")
}

// Sampling is the analysed span of one movie in seconds. Clips are only
// extracted inside the span, so aggregation never sees subjects outside it.
type Sampling struct {
	Start float64
	End   float64
}

// DefaultSampling fills missing sampling bounds
// A missing start becomes 0 and a missing end becomes the movie duration
func DefaultSampling(start, end *float64, duration float64) Sampling {
	s := Sampling{Start: 0, End: duration}
	if start != nil {
		s.Start = *start
	}
	if end != nil {
		s.End = *end
	}
	return s
}

// Check validates the sampling span against the movie duration
func (s Sampling) Check(duration float64) error {
	if s.Start < 0 {
		return fmt.Errorf("sampling start %v is negative", s.Start)
	}
	if s.End < s.Start {
		return fmt.Errorf("sampling end %v is before sampling start %v", s.End, s.Start)
	}
	if duration > 0 && s.End > duration {
		return fmt.Errorf("sampling end %v is longer than the movie duration %v", s.End, duration)
	}
	return nil
}
