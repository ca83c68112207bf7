package rategate

import (
	"sort"
	"strings"
)

// configScope records which override source produced a resolved Config.
// Method-scoped configs widen the endpoint identity to include the HTTP
// method, so that POST /x and GET /x count separately.
type configScope int

const (
	scopeDefault configScope = iota
	scopePath
	scopeMethod
)

type pathOverride struct {
	prefix string
	cfg    Config
}

// resolver picks the effective Config for a request. Exactly one source
// applies: a method override wins over a path override, which wins over the
// default. Among several matching path prefixes the longest wins.
type resolver struct {
	def     Config
	methods map[string]Config
	paths   []pathOverride
}

func newResolver(def Config, methods map[string]Config, paths map[string]Config) *resolver {
	r := &resolver{def: def, methods: methods}
	for prefix, cfg := range paths {
		r.paths = append(r.paths, pathOverride{prefix: prefix, cfg: cfg})
	}
	sort.Slice(r.paths, func(i, j int) bool {
		a, b := r.paths[i], r.paths[j]
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return a.prefix < b.prefix
	})
	return r
}

func (r *resolver) resolve(method, path string) (Config, configScope) {
	if cfg, ok := r.methods[method]; ok {
		return cfg, scopeMethod
	}
	for _, o := range r.paths {
		if strings.HasPrefix(path, o.prefix) {
			return o.cfg, scopePath
		}
	}
	return r.def, scopeDefault
}

// validate checks every configured source; any fault is fatal.
func (r *resolver) validate() error {
	if err := r.def.validate("default"); err != nil {
		return err
	}
	for method, cfg := range r.methods {
		if err := cfg.validate("method " + method); err != nil {
			return err
		}
	}
	for _, o := range r.paths {
		if err := o.cfg.validate("path " + o.prefix); err != nil {
			return err
		}
	}
	return nil
}
