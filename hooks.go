package kvgate

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the store calls them on
// hot paths. Wrap with hooks/async if your sink can block.
type Hooks interface {
	// A request presented a token that failed validation.
	// Carries only the operation name; tokens are never handed to hooks.
	AuthRejected(op string)

	// The backend failed an operation after its own bounded retries.
	// op ∈ {"auth", "get", "set", "delete", "list", "health"}
	BackendFault(op string, err error)

	// A scan returned a backend key that does not decode into the
	// requesting token's namespace. Invariant breach; the key is skipped.
	ScanSkipped(backendKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) AuthRejected(string)        {}
func (NopHooks) BackendFault(string, error) {}
func (NopHooks) ScanSkipped(string)         {}
