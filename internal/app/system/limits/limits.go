// internal/app/system/limits/limits.go
package limits

// Size limits for bodies read into memory.
const (
	// MaxJSONBody is the largest API request body accepted.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxRegistryBody is how much of a registry response is read.
	MaxRegistryBody = 2 << 20 // 2 MB
)
