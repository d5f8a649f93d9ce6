// Package metrics exposes application metrics collectors.
package metrics

const (
	namespace = "payjoin7000"
	unknown   = "unknown"
)

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
