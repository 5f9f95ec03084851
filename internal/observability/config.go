package observability

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	// EnablePprofTrace mounts net/http/pprof under /debug/pprof/.
	EnablePprofTrace bool `yaml:"pprof" json:"pprof"`
	// ExposeMetrics includes the metric snapshot in /diagnostics.
	ExposeMetrics bool `yaml:"metrics" json:"metrics"`
}

// Enabled reports whether any toggle is on.
func (c Config) Enabled() bool {
	return c.EnablePprofTrace || c.ExposeMetrics
}
