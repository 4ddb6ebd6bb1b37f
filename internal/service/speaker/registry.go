// Package speaker assigns stable display identities to speaker ids.
package speaker

// DefaultPalette is the display token cycle used when none is configured.
var DefaultPalette = []string{"blue", "green", "purple", "orange", "pink", "cyan"}

// Registry maps speaker ids to palette tokens in first-seen order.
// Not safe for concurrent use; the transcript engine serialises access.
type Registry struct {
	palette []string
	tokens  map[string]string
	order   []string
}

// NewRegistry creates a registry cycling through palette. An empty palette
// falls back to DefaultPalette.
func NewRegistry(palette []string) *Registry {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	p := make([]string, len(palette))
	copy(p, palette)
	return &Registry{
		palette: p,
		tokens:  make(map[string]string),
	}
}

// Register returns the token for speakerID, assigning the next palette entry
// on first sight. Repeated calls return the same token.
func (r *Registry) Register(speakerID string) string {
	if token, ok := r.tokens[speakerID]; ok {
		return token
	}
	token := r.palette[len(r.order)%len(r.palette)]
	r.tokens[speakerID] = token
	r.order = append(r.order, speakerID)
	return token
}

// Token returns the token assigned to speakerID, if any.
func (r *Registry) Token(speakerID string) (string, bool) {
	token, ok := r.tokens[speakerID]
	return token, ok
}

// Len returns the number of registered speakers.
func (r *Registry) Len() int {
	return len(r.order)
}

// Speakers returns the speaker ids in first-seen order.
func (r *Registry) Speakers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Assignments returns a copy of the speaker to token mapping.
func (r *Registry) Assignments() map[string]string {
	out := make(map[string]string, len(r.tokens))
	for id, token := range r.tokens {
		out[id] = token
	}
	return out
}

// Reset forgets every assignment.
func (r *Registry) Reset() {
	r.tokens = make(map[string]string)
	r.order = nil
}
