// Package api handles incoming HTTP requests: it decodes JSON and multipart
// payloads, calls the application services and formats responses. Errors are
// mapped to status codes in exactly one place, HandleAPIError.
package api
