//go:build !llama

package backend

// NewLlama fails fast in builds without the 'llama' tag so a misconfigured
// deployment never starts serving.
func NewLlama(Config) (Backend, error) {
	return nil, ErrConfig(ProviderLlama, "llama support not built (missing 'llama' build tag)")
}
