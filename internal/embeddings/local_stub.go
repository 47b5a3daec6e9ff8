//go:build !cgo

package embeddings

// Without CGO the ONNX runtime cannot be loaded; deployments built this
// way must point Config.Provider at a remote embedding server.
func newLocalProvider(Config) (Provider, error) {
	return nil, ErrLocalUnavailable
}
