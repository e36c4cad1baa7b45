// package services implements REST clients for the two OAuth providers
//
// Discord, Patreon
package services

import (
	"fmt"
	"io"
	"net/http"

	"github.com/aikosys/patronlink/internal/shared"
)

// drainClose reads and closes a response body so the underlying connection
// can be reused.
func drainClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}

// statusError wraps a non-2xx provider response as an [shared.ErrAPIRequest].
func statusError(resp *http.Response) error {
	return fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, resp.Request.URL.Path, resp.StatusCode)
}
