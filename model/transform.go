package model

// IdentityOption configures AddIdentity.
type IdentityOption func(*identityConfig)

type identityConfig struct {
	name   func(*Type) string
	filter func(*Type) bool
}

// WithIdentityName sets the function naming the created identity
// attribute. The default name is "Id".
func WithIdentityName(fn func(*Type) string) IdentityOption {
	return func(c *identityConfig) { c.name = fn }
}

// WithIdentityFilter restricts the types that receive an identity.
func WithIdentityFilter(fn func(*Type) bool) IdentityOption {
	return func(c *identityConfig) { c.filter = fn }
}

// AddIdentity prepends an identity attribute of the given type to every
// class of m that has no identity yet. It returns the created attributes.
func AddIdentity(m *Model, identityType *Type, opts ...IdentityOption) []*Property {
	cfg := &identityConfig{
		name:   func(*Type) string { return "Id" },
		filter: func(t *Type) bool { return t.Kind == KindClass },
	}
	for _, opt := range opts {
		opt(cfg)
	}
	var added []*Property
	for _, t := range m.Types {
		if !t.IsMemberedClassifier() || !cfg.filter(t) || FindIdentity(t) != nil {
			continue
		}
		p := &Property{
			ID:    t.ID + "/identity",
			Name:  cfg.name(t),
			Type:  identityType,
			Owner: t,
			Lower: 1,
			Upper: 1,
			IsID:  true,
		}
		t.Attributes = append([]*Property{p}, t.Attributes...)
		added = append(added, p)
	}
	return added
}
