package nscache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// The version key was absent and has been written as 1.
	VersionInitialized(namespace string, version uint64)

	// The version was read from the backend (first use of an instance).
	VersionLoaded(namespace string, version uint64)

	// IncrementNamespaceVersion moved the namespace from one version to the next.
	VersionBumped(namespace string, from, to uint64)

	// Remember missed and stored a freshly produced value.
	RememberComputed(namespace, key string)

	// Remember's producer failed; nothing was written.
	ProducerFailed(namespace, key string, err error)

	// Backend returned ok=false on Save (backpressure/admission/eviction).
	SaveRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) VersionInitialized(string, uint64)    {}
func (NopHooks) VersionLoaded(string, uint64)         {}
func (NopHooks) VersionBumped(string, uint64, uint64) {}
func (NopHooks) RememberComputed(string, string)      {}
func (NopHooks) ProducerFailed(string, string, error) {}
func (NopHooks) SaveRejected(string)                  {}
