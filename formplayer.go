// Package formplayer re-exports the main entry points of the module so
// callers can drive a form session without importing each subpackage.
package formplayer

import (
	"context"

	"github.com/goliatone/go-formplayer/pkg/form"
	"github.com/goliatone/go-formplayer/pkg/player"
	"github.com/goliatone/go-formplayer/pkg/session"
)

// FormSpec identifies the form a new session should open.
type FormSpec = session.FormSpec

// Transport delivers operations to a form engine.
type Transport = session.Transport

// Response is the engine's reply envelope.
type Response = session.Response

// Form is the live question tree.
type Form = form.Form

// Question is a leaf of the form tree.
type Question = form.Question

// NewSession exposes the session constructor from the top-level module.
func NewSession(t session.Transport, options ...session.Option) *session.Session {
	return session.New(t, options...)
}

// NewHTTPTransport builds the default HTTP transport for a form engine.
func NewHTTPTransport(baseURL string, options ...session.HTTPOption) (*session.HTTPTransport, error) {
	return session.NewHTTPTransport(baseURL, options...)
}

// Play opens the form over HTTP and runs the interactive terminal player. It
// is the simplest entry point for callers that just want to fill in a form.
func Play(ctx context.Context, serverURL string, spec FormSpec, options ...player.Option) error {
	transport, err := session.NewHTTPTransport(serverURL)
	if err != nil {
		return err
	}
	return player.New(transport, options...).Run(ctx, spec)
}
