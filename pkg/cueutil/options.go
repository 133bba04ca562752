// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize caps the documents Decode accepts (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	// Option configures Decode.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}
)

func defaultOptions() options {
	return options{filename: "<input>", maxFileSize: DefaultMaxFileSize}
}

// WithFilename names the document in positions and error messages.
func WithFilename(name string) Option {
	return func(o *options) {
		if name != "" {
			o.filename = name
		}
	}
}

// WithMaxFileSize sets the largest accepted document.
func WithMaxFileSize(size int64) Option {
	return func(o *options) { o.maxFileSize = size }
}

// WithConcrete requires every field to have a concrete value after
// unification. Schemas with optional fields leave it off.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}
