package citation

import (
	"sync"

	"luat-chat/pkg/lawapi"
)

// Resolver maps parsed article references onto the PDF source descriptors
// returned with an answer. Resolution never fails: when no descriptor
// matches, a best-guess default is returned, because a broken citation link
// is worse than an approximate one.
//
// The resolver remembers the last family it resolved to, so follow-up
// references without an exact source stay inside the document the
// conversation is about. One resolver is shared by every request handler,
// so that memory is guarded by a mutex.
type Resolver struct {
	registry *Registry

	mu         sync.Mutex
	lastDomain string
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry *Registry) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Resolver{registry: registry}
}

// Registry exposes the underlying name registry.
func (rv *Resolver) Registry() *Registry {
	return rv.registry
}

// Resolve returns the descriptor whose article number matches ref after
// normalization, or a default descriptor when none does. The result is
// never nil and always carries a domain id and display-safe fields.
func (rv *Resolver) Resolve(ref ArticleReference, sources []lawapi.PDFSource) *lawapi.PDFSource {
	want := Normalize(ref.ArticleNum)

	for i := range sources {
		if Normalize(sources[i].ArticleNum) == want && sources[i].PDFFile != "" {
			resolved := sources[i] // copy; descriptors are per-message
			rv.completeDomain(&resolved)
			rv.mu.Lock()
			rv.lastDomain = resolved.DomainID
			rv.mu.Unlock()
			return &resolved
		}
	}

	return rv.defaultDescriptor(ref)
}

// ResolveAll resolves every reference in place against the same source list.
func (rv *Resolver) ResolveAll(refs []ArticleReference, sources []lawapi.PDFSource) {
	for i := range refs {
		refs[i].Source = rv.Resolve(refs[i], sources)
	}
}

// DisplayName returns the user-facing name for a descriptor's family.
func (rv *Resolver) DisplayName(src *lawapi.PDFSource) string {
	if src == nil {
		return GenericDisplayName
	}
	return rv.registry.DisplayName(src.DomainID)
}

// completeDomain fills in a missing domain id from the descriptor's file
// names, falling back to the default family.
func (rv *Resolver) completeDomain(src *lawapi.PDFSource) {
	if src.DomainID != "" {
		return
	}
	if id, ok := rv.registry.DomainForJSON(src.JSONFile); ok {
		src.DomainID = id
		return
	}
	if id, ok := rv.registry.DomainForPDF(src.PDFFile); ok {
		src.DomainID = id
		return
	}
	src.DomainID = rv.registry.DefaultDomain()
}

// defaultDescriptor builds the fallback for a reference with no exact
// source: the most recently resolved family, else the fixed default.
func (rv *Resolver) defaultDescriptor(ref ArticleReference) *lawapi.PDFSource {
	rv.mu.Lock()
	domainID := rv.lastDomain
	rv.mu.Unlock()
	if domainID == "" {
		domainID = rv.registry.DefaultDomain()
	}

	return &lawapi.PDFSource{
		DomainID:   domainID,
		PDFFile:    rv.registry.PDFFile(domainID),
		ArticleNum: ref.ArticleNum,
	}
}
