package auth

// SessionMaterializerFunc adapts a function into a SessionMaterializer.
type SessionMaterializerFunc func(raw string) (*Session, error)

// Materialize satisfies the SessionMaterializer interface.
func (f SessionMaterializerFunc) Materialize(raw string) (*Session, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(raw)
}

// MultiMaterializer tries materializers in order until one succeeds. It
// lets tokens signed with a retired key verify while keys rotate.
// ErrTokenMalformed means "try next", any other error stops the chain.
type MultiMaterializer struct {
	materializers []SessionMaterializer
}

// NewMultiMaterializer filters nil materializers and returns a composite.
func NewMultiMaterializer(materializers ...SessionMaterializer) *MultiMaterializer {
	filtered := make([]SessionMaterializer, 0, len(materializers))
	for _, m := range materializers {
		if m != nil {
			filtered = append(filtered, m)
		}
	}
	return &MultiMaterializer{materializers: filtered}
}

// Materialize satisfies the SessionMaterializer interface.
func (m *MultiMaterializer) Materialize(raw string) (*Session, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	var lastErr error
	for _, v := range m.materializers {
		session, err := v.Materialize(raw)
		if err == nil {
			return session, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}
