package annodoc

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type decoderEntry struct {
	field string
	fn    DecodeFunc
}

type clientConfig struct {
	dir          string
	imagesInJSON bool

	addrs     []string
	password  string
	keyPrefix string

	decoders []decoderEntry
	fallback DecodeFunc

	ocrLanguage string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDir stores documents as directories under dir.
func WithDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dir = dir
	})
}

// WithImagesInJSON stores each document as one JSON file with embedded
// images instead of a directory with sidecar PNGs. Only used with WithDir.
func WithImagesInJSON() Option {
	return optionFunc(func(c *clientConfig) {
		c.imagesInJSON = true
	})
}

// WithRedis stores documents in a Redis instance. Takes precedence over WithDir.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the Redis key prefix. Default: "annodoc:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDecoder registers the annotation decoder for a field. Fields without
// a decoder are read back as span groups.
func WithDecoder(field string, fn DecodeFunc) Option {
	return optionFunc(func(c *clientConfig) {
		c.decoders = append(c.decoders, decoderEntry{field: field, fn: fn})
	})
}

// WithFallbackDecoder replaces the span group decoder used for fields
// without their own decoder.
func WithFallbackDecoder(fn DecodeFunc) Option {
	return optionFunc(func(c *clientConfig) {
		c.fallback = fn
	})
}

// WithOCR recognizes page texts of image-only documents with Tesseract.
// lang is a Tesseract language list such as "eng" or "eng+deu". Requires
// a build with the "ocr" tag.
func WithOCR(lang string) Option {
	return optionFunc(func(c *clientConfig) {
		c.ocrLanguage = lang
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
