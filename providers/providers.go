// Package providers selects a concrete adapter from a provider identifier.
// The set is closed: branching on the identifier happens once per run, here,
// and never inside the orchestration loop.
package providers

import (
	"fmt"
	"strings"

	"github.com/grcsuite/copilot"
	"github.com/grcsuite/copilot/providers/anthropic"
	"github.com/grcsuite/copilot/providers/azurechat"
	"github.com/grcsuite/copilot/providers/chatcompletion"
)

// Provider identifiers accepted by New.
const (
	IDAzure     = "azure"
	IDOpenAI    = "openai"
	IDAnthropic = "anthropic"
)

// New builds the adapter for the given per-run configuration.
func New(cfg copilot.ProviderConfig) (copilot.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case IDAzure:
		opts := []azurechat.Option{
			azurechat.WithAPIKey(cfg.APIKey),
			azurechat.WithEndpoint(cfg.Endpoint),
		}
		for k, v := range cfg.Headers {
			opts = append(opts, azurechat.WithExtraHeader(k, v))
		}
		if cfg.Temperature != nil {
			opts = append(opts, azurechat.WithTemperature(*cfg.Temperature))
		}
		if cfg.MaxTokens != nil {
			opts = append(opts, azurechat.WithMaxOutputTokens(*cfg.MaxTokens))
		}
		return azurechat.New(cfg.Model, opts...), nil

	case IDOpenAI:
		opts := []chatcompletion.Option{
			chatcompletion.WithAPIKey(cfg.APIKey),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, chatcompletion.WithBaseURL(cfg.Endpoint))
		}
		for k, v := range cfg.Headers {
			opts = append(opts, chatcompletion.WithExtraHeader(k, v))
		}
		if cfg.Temperature != nil {
			opts = append(opts, chatcompletion.WithTemperature(*cfg.Temperature))
		}
		if cfg.MaxTokens != nil {
			opts = append(opts, chatcompletion.WithMaxOutputTokens(*cfg.MaxTokens))
		}
		return chatcompletion.New(cfg.Model, opts...), nil

	case IDAnthropic:
		opts := []anthropic.Option{
			anthropic.WithAPIKey(cfg.APIKey),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
		}
		for k, v := range cfg.Headers {
			opts = append(opts, anthropic.WithExtraHeader(k, v))
		}
		if cfg.Temperature != nil {
			opts = append(opts, anthropic.WithTemperature(*cfg.Temperature))
		}
		if cfg.MaxTokens != nil {
			opts = append(opts, anthropic.WithMaxOutputTokens(*cfg.MaxTokens))
		}
		return anthropic.New(cfg.Model, opts...), nil

	default:
		return nil, fmt.Errorf("providers: unknown provider %q", cfg.Provider)
	}
}
