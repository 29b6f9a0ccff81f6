package controltree

import (
	"regexp"

	"github.com/rs/zerolog"
)

// typeNamePattern restricts resolvable type names to identifier characters.
// Anything else yields an unresolved result without consulting the Resolver.
var typeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Container is the root of a control tree. It owns the per-tree type cache,
// is its own top-level ancestor for top-scoped events, and is the entry
// point for bulk Set and Get calls from host code.
type Container struct {
	BaseControl

	resolver Resolver
	types    map[string]*controlType
	logger   zerolog.Logger
}

// ContainerOption configures a Container at construction.
type ContainerOption func(*Container)

// WithLogger sets the container's logger. Root log events and engine-level
// soft failures are reported through it. The default is a no-op logger.
func WithLogger(logger zerolog.Logger) ContainerOption {
	return func(c *Container) { c.logger = logger }
}

// NewContainer builds an empty tree rooted at a fresh container. resolver
// locates control constructors by type name; it may be nil, in which case
// every type is unresolvable and Set can only update the (empty) root.
func NewContainer(resolver Resolver, opts ...ContainerOption) *Container {
	c := &Container{
		resolver: resolver,
		types:    make(map[string]*controlType),
		logger:   zerolog.Nop(),
	}
	c.BaseControl.attach(c, nil, "", nil, c)
	for _, opt := range opts {
		opt(c)
	}
	c.On(EventLog, func(v any, _ Metadata) {
		if msg, ok := v.(string); ok {
			c.logger.Info().Msg(msg)
		}
	}, nil)
	return c
}

// resolveType returns the cached schema for a type name, consulting the
// Resolver on a miss. Invalid names, unknown names and constructors that do
// not produce controls all yield nil; construction is then skipped without
// surfacing an error.
func (c *Container) resolveType(name string) *controlType {
	if ct, ok := c.types[name]; ok {
		return ct
	}
	if !typeNamePattern.MatchString(name) {
		c.logger.Debug().Str("type", name).Msg("invalid control type name")
		return nil
	}
	if c.resolver == nil {
		return nil
	}
	newFunc, ok := c.resolver.Resolve(name)
	if !ok || newFunc == nil {
		c.logger.Debug().Str("type", name).Msg("unresolved control type")
		return nil
	}
	ct := newControlType(name, newFunc)
	if ct == nil {
		c.logger.Debug().Str("type", name).Msg("constructor does not produce a control struct")
		return nil
	}
	c.types[name] = ct
	return ct
}
