package insights

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/go-github/v81/github"
	"go.uber.org/zap"

	"ghexplorer/internal/governor"
)

// SourceBasic marks an insight computed locally by Basic.
const SourceBasic = "basic"

// Insight is the analysis of one repository.
type Insight struct {
	Repo        string    `json:"repo" yaml:"repo"`
	Text        string    `json:"text" yaml:"text"`
	AIGenerated bool      `json:"ai_generated" yaml:"ai_generated"`
	Source      string    `json:"source" yaml:"source"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Cached      bool      `json:"cached" yaml:"cached"`
	// Error is the provider failure that caused a fallback to the basic summary.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Generator produces insights, serializing provider calls through a Governor.
type Generator struct {
	provider Provider
	gov      *governor.Governor
	cache    Cache
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type GeneratorOption func(*Generator)

// WithCache reuses AI-generated insights for ttl.
func WithCache(c Cache, ttl time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.cache = c
		g.ttl = ttl
	}
}

func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithNow(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator builds a Generator. A nil provider means every insight is the
// basic summary; a non-nil provider requires gov.
func NewGenerator(provider Provider, gov *governor.Governor, opts ...GeneratorOption) (*Generator, error) {
	if provider != nil && gov == nil {
		return nil, errors.New("insights: provider requires a governor")
	}
	g := &Generator{
		provider: provider,
		gov:      gov,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(g)
		}
	}
	return g, nil
}

// Enabled reports whether a remote provider is configured.
func (g *Generator) Enabled() bool {
	return g.provider != nil
}

// Generate returns the insight for repo. Provider failures degrade to the
// basic summary with Error set; only context cancellation is returned as an error.
func (g *Generator) Generate(ctx context.Context, repo *github.Repository) (Insight, error) {
	if repo == nil {
		return Insight{}, errors.New("insights: nil repository")
	}
	name := repo.GetFullName()
	log := g.logger.With(zap.String("repo", name))

	if g.provider == nil {
		return g.basic(repo, ""), nil
	}

	key := CacheKey(repo)
	if in, ok := g.lookup(ctx, key, log); ok {
		return in, nil
	}

	prompt := BuildPrompt(repo)
	text, err := governor.Do(ctx, g.gov, func(ctx context.Context) (string, error) {
		log.Debug("requesting insight", zap.String("provider", g.provider.Name()))
		return g.provider.Generate(ctx, prompt)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Insight{}, ctxErr
		}
		log.Warn("insight generation failed, using basic summary", zap.Error(err))
		return g.basic(repo, err.Error()), nil
	}

	in := Insight{
		Repo:        name,
		Text:        text,
		AIGenerated: true,
		Source:      g.provider.Name(),
		GeneratedAt: g.now().UTC(),
	}
	g.store(ctx, key, in, log)
	return in, nil
}

func (g *Generator) basic(repo *github.Repository, errMsg string) Insight {
	now := g.now()
	return Insight{
		Repo:        repo.GetFullName(),
		Text:        Basic(repo, now),
		Source:      SourceBasic,
		GeneratedAt: now.UTC(),
		Error:       errMsg,
	}
}

func (g *Generator) lookup(ctx context.Context, key string, log *zap.Logger) (Insight, bool) {
	if g.cache == nil {
		return Insight{}, false
	}
	data, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		log.Warn("insight cache read failed", zap.Error(err))
		return Insight{}, false
	}
	if !ok {
		return Insight{}, false
	}
	var in Insight
	if err := json.Unmarshal(data, &in); err != nil {
		log.Warn("discarding malformed cached insight", zap.Error(err))
		return Insight{}, false
	}
	in.Cached = true
	log.Debug("insight cache hit")
	return in, true
}

func (g *Generator) store(ctx context.Context, key string, in Insight, log *zap.Logger) {
	if g.cache == nil {
		return
	}
	data, err := json.Marshal(in)
	if err != nil {
		log.Warn("insight cache encode failed", zap.Error(err))
		return
	}
	if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
		log.Warn("insight cache write failed", zap.Error(err))
	}
}
