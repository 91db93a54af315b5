// Package recognizers implements the detectors run by the analyzer. Every
// variant satisfies Recognizer and reports findings for a given text using
// the shared linguistic artifacts of the request.
package recognizers
