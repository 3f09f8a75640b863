// Package wingman talks to the generative text service that writes the
// chemistry commentary on deck profiles and the tone notes on chat messages.
package wingman

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned when no generative text credential is configured.
	ErrNoAPIKey = errors.New("wingman: api key not configured")
	// ErrEmptyResponse is returned when the service replies without text.
	ErrEmptyResponse = errors.New("wingman: empty response")
)

// Request is one free-text generation call.
type Request struct {
	Prompt            string
	SystemInstruction string
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Unavailable is the Generator used when no credential is configured.
// Every call fails with ErrNoAPIKey.
var Unavailable Generator = GeneratorFunc(func(context.Context, Request) (string, error) {
	return "", ErrNoAPIKey
})

const (
	// SystemInstruction frames every vibe check.
	SystemInstruction = "You are the LinkVibez AI Wingman. Analyze the vibe of this bio with playful, " +
		"cheeky honesty. Always finish with a line formatted exactly as \"Chemistry Score: N/100\" " +
		"where N is an integer from 0 to 100."

	// ThinkingText is shown while a vibe check is outstanding.
	ThinkingText = "Wingman is thinking…"
	// UnavailableText replaces a failed vibe check.
	UnavailableText = "Vibe check unavailable"
	// ToneFallbackText replaces a failed tone analysis.
	ToneFallbackText = "Wingman couldn't read the tone this time."
)

// VibePrompt asks for the chemistry commentary on a bio.
func VibePrompt(bio string) string {
	return fmt.Sprintf("Profile Bio: %s. Give me a 1-sentence cheeky chemistry analysis.", bio)
}

// TonePrompt asks for a short tone read of an outgoing chat message.
func TonePrompt(text string) string {
	return fmt.Sprintf("Analyze the tone of this dating message: \"%s\". Be brief.", text)
}

// VibeCheck requests the chemistry commentary for a bio.
func VibeCheck(ctx context.Context, g Generator, bio string) (string, error) {
	return g.Generate(ctx, Request{Prompt: VibePrompt(bio), SystemInstruction: SystemInstruction})
}

// Tone requests the tone note for a chat message.
func Tone(ctx context.Context, g Generator, text string) (string, error) {
	return g.Generate(ctx, Request{Prompt: TonePrompt(text)})
}
