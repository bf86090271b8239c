package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// PlaceholderName is shown for movements whose name cannot be resolved.
const PlaceholderName = "Exercise"

const (
	templateKeyPrefix = "template::"
	movementKeyPrefix = "movement::"
)

type source interface {
	GetTemplate(ctx context.Context, id string) (*workout.Template, error)
	MovementName(ctx context.Context, movementID string) (string, error)
}

// CachedProvider reads templates and movement names through a local freecache.
// Templates are read-only for the engine, so a short TTL is all the invalidation needed.
type CachedProvider struct {
	source   source
	cache    *freecache.Cache
	cacheTTL int // seconds
}

func NewCachedProvider(source source, cacheSizeMB int, cacheTTL time.Duration) *CachedProvider {
	megabyte := 1024 * 1024
	if cacheSizeMB <= 0 {
		cacheSizeMB = 8
	}
	return &CachedProvider{
		source:   source,
		cache:    freecache.NewCache(cacheSizeMB * megabyte),
		cacheTTL: int(cacheTTL.Seconds()),
	}
}

func (p *CachedProvider) GetTemplate(ctx context.Context, id string) (_ *workout.Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templates.provider.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	cacheKey := []byte(templateKeyPrefix + id)
	if templateBytes, err := p.cache.Get(cacheKey); err == nil {
		tmpl := &workout.Template{}
		if err := json.Unmarshal(templateBytes, tmpl); err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return tmpl, nil
		} else {
			log.Errorf("unmarshal cached template [%s]: %s", id, err)
		}
	}

	tmpl, err := p.source.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template [%s]: %w", id, err)
	}

	templateBytes, err := json.Marshal(tmpl)
	if err != nil {
		log.Errorf("marshal template [%s] for cache: %s", id, err)
		return tmpl, nil
	}
	if err := p.cache.Set(cacheKey, templateBytes, p.cacheTTL); err != nil {
		log.Errorf("set template [%s] cache: %s", id, err)
	}

	return tmpl, nil
}

// Invalidate drops a cached template, used after the template is edited.
func (p *CachedProvider) Invalidate(id string) {
	p.cache.Del([]byte(templateKeyPrefix + id))
}

func (p *CachedProvider) InvalidateMovement(movementID string) {
	p.cache.Del([]byte(movementKeyPrefix + movementID))
}

// Name resolves the display name of a movement. Never fails: missing or
// unresolvable identities get the placeholder name.
func (p *CachedProvider) Name(ctx context.Context, movementID string) string {
	if strings.TrimSpace(movementID) == "" {
		return PlaceholderName
	}

	cacheKey := []byte(movementKeyPrefix + movementID)
	if nameBytes, err := p.cache.Get(cacheKey); err == nil {
		return string(nameBytes)
	}

	name, err := p.source.MovementName(ctx, movementID)
	if err != nil {
		if !errors.Is(err, ErrMovementNotFound) {
			log.Warnf("resolve movement [%s] name: %s", movementID, err)
		}
		return PlaceholderName
	}
	if strings.TrimSpace(name) == "" {
		return PlaceholderName
	}

	if err := p.cache.Set(cacheKey, []byte(name), p.cacheTTL); err != nil {
		log.Errorf("set movement [%s] name cache: %s", movementID, err)
	}
	return name
}
