package llm

import (
	"context"
	"fmt"
)

// Tier is the caller-supplied pricing tier preference.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Speed is the caller-supplied latency/quality preference.
type Speed string

const (
	SpeedFast    Speed = "fast"
	SpeedQuality Speed = "quality"
)

// Provider tags used in routing and the usage ledger.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Route is a resolved provider endpoint for one request.
type Route struct {
	Provider Provider

	// Model is the concrete model identifier.
	Model string

	// BillingID is the identifier written to the usage ledger.
	BillingID string

	// Tag names the backing provider ("openai", "anthropic", ...).
	Tag string
}

// routeEntry is one row of the static routing table.
type routeEntry struct {
	provider string
	model    string
}

// routingTable maps (tier, speed) to a provider and model. Pure data; the
// Registry resolves entries against the clients it actually constructed.
var routingTable = map[Tier]map[Speed]routeEntry{
	TierStandard: {
		SpeedFast:    {ProviderGemini, "gemini-2.0-flash"},
		SpeedQuality: {ProviderOpenAI, "gpt-4o-mini"},
	},
	TierPremium: {
		SpeedFast:    {ProviderAnthropic, "claude-haiku-4-5-20251001"},
		SpeedQuality: {ProviderAnthropic, "claude-sonnet-4-20250514"},
	},
}

// auxOrder is the preference order for the cheap auxiliary route used by
// compression and verification.
var auxOrder = []routeEntry{
	{ProviderGemini, "gemini-2.0-flash"},
	{ProviderOpenAI, "gpt-4o-mini"},
	{ProviderAnthropic, "claude-haiku-4-5-20251001"},
	{ProviderOpenRouter, "google/gemini-2.0-flash-exp"},
}

// Registry holds every constructed provider client, keyed by provider tag
// and model. Built once at process start and passed by injection; there is
// no global client cache.
type Registry struct {
	cfg       Config
	providers map[string]Provider // key: tag + "/" + model
}

// NewRegistry constructs clients for every routing-table entry whose
// provider has credentials. Entries without credentials stay unresolved and
// surface as ErrNotConfigured at Resolve time.
func NewRegistry(ctx context.Context, cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{cfg: cfg, providers: make(map[string]Provider)}

	entries := make([]routeEntry, 0, 8)
	for _, bySpeed := range routingTable {
		for _, e := range bySpeed {
			entries = append(entries, e)
		}
	}
	entries = append(entries, auxOrder...)

	for _, e := range entries {
		if _, ok := r.providers[e.provider+"/"+e.model]; ok {
			continue
		}
		if !cfg.Configured(e.provider) {
			continue
		}
		p, err := r.build(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("initializing %s provider: %w", e.provider, err)
		}
		r.providers[e.provider+"/"+e.model] = p
	}

	return r, nil
}

func (r *Registry) build(ctx context.Context, e routeEntry) (Provider, error) {
	switch e.provider {
	case ProviderAnthropic:
		return NewAnthropicProvider(r.cfg.Anthropic, e.model)
	case ProviderOpenAI:
		return NewOpenAIProvider(r.cfg.OpenAI, e.model)
	case ProviderGemini:
		return NewGeminiProvider(ctx, r.cfg.Gemini, e.model)
	case ProviderOpenRouter:
		return NewOpenRouterProvider(r.cfg.OpenRouter, e.model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", e.provider)
	}
}

// Resolve maps a (tier, speed) preference to a concrete route.
// Missing credentials for the routed provider is fatal, not retried.
func (r *Registry) Resolve(tier Tier, speed Speed) (Route, error) {
	bySpeed, ok := routingTable[tier]
	if !ok {
		bySpeed = routingTable[TierStandard]
	}
	e, ok := bySpeed[speed]
	if !ok {
		e = bySpeed[SpeedFast]
	}

	p, ok := r.providers[e.provider+"/"+e.model]
	if !ok {
		return Route{}, &ErrNotConfigured{Provider: e.provider}
	}

	return Route{
		Provider:  p,
		Model:     e.model,
		BillingID: e.model,
		Tag:       e.provider,
	}, nil
}

// Aux returns the cheapest configured route, used for compression and
// verification calls.
func (r *Registry) Aux() (Route, error) {
	for _, e := range auxOrder {
		if p, ok := r.providers[e.provider+"/"+e.model]; ok {
			return Route{Provider: p, Model: e.model, BillingID: e.model, Tag: e.provider}, nil
		}
	}
	return Route{}, &ErrNotConfigured{Provider: "any"}
}

// Decorate replaces every registered provider with fn(provider). Used to
// layer the usage ledger over all clients after construction.
func (r *Registry) Decorate(fn func(Provider) Provider) {
	for k, p := range r.providers {
		r.providers[k] = fn(p)
	}
}

// Register installs a provider for a tag/model pair, replacing any existing
// entry. Intended for tests wiring mock providers.
func (r *Registry) Register(tag, model string, p Provider) {
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[tag+"/"+model] = p
}

// NewTestRegistry returns a Registry that routes every (tier, speed) and the
// aux route to the given provider. Test helper.
func NewTestRegistry(p Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, bySpeed := range routingTable {
		for _, e := range bySpeed {
			r.providers[e.provider+"/"+e.model] = p
		}
	}
	for _, e := range auxOrder {
		r.providers[e.provider+"/"+e.model] = p
	}
	return r
}
