package linker

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/aikosys/patronlink/internal/web"
)

// renderOutcome maps a terminal state to its themed page and writes it.
func (h *Handlers) renderOutcome(w http.ResponseWriter, r *http.Request, state OperationState) {
	var page web.Page

	switch state {
	case StateNotStarted:
		page = web.Page{
			Title:   "Auth Not Started",
			Header:  "Authentication Not Started",
			Message: "Please start the authentication process.",
			Status:  http.StatusBadRequest,
		}
	case StateRolePatch:
		page = h.successPage(
			"#ff79c6",
			"You are already a member of the server, but we updated your roles accordingly.",
			"#8be9fd",
		)
	case StateGuildAdd:
		page = h.successPage(
			"#bd93f9",
			"You have been successfully added to the server!",
			"#f1fa8c",
		)
	case StateFailure:
		// The restart URL derives from request headers, so it must be
		// escaped before landing in the trusted message markup.
		restart := template.HTMLEscapeString(h.redirectURI(r, "/auth"))
		page = web.Page{
			Title:       "Auth Failed",
			Header:      "Authentication Failed",
			HeaderColor: "#ff5555",
			Message: template.HTML(fmt.Sprintf(
				`An error occurred while processing your request. Please try again at <a href="%s">%s</a>.`,
				restart, restart,
			)),
			MessageColor: "#fc8a11",
			Status:       http.StatusBadRequest,
		}
	default:
		page = web.Page{
			Title:        "Unknown Error",
			Header:       "Unknown Error",
			HeaderColor:  "#ff0000",
			Message:      "An unknown error occurred while processing your request. Please try again later.",
			MessageColor: "#ff5555",
			Status:       http.StatusInternalServerError,
		}
	}

	h.renderPage(w, page)
}

// successPage builds the shared success layout with the auto-redirect back to
// the configured Patreon account page.
func (h *Handlers) successPage(headerColor, message, messageColor string) web.Page {
	return web.Page{
		Title:        "Auth Success",
		Header:       "Authentication Successful",
		HeaderColor:  headerColor,
		Message:      template.HTML(message),
		MessageColor: messageColor,
		Status:       http.StatusOK,
		RedirectTo:   h.accountURL,
		RedirectMessage: template.HTML(fmt.Sprintf(
			`<i>We'll redirect you back to <a href="%s">%s</a> in <code>10</code> seconds.</i>`,
			h.accountURL, h.accountURL,
		)),
	}
}

// notFoundPage is rendered for any path outside the linking chain.
func (h *Handlers) notFoundPage() web.Page {
	return web.Page{
		Title:        "404 Not Found",
		Header:       "Page Not Found",
		HeaderColor:  "#ff5555",
		Message:      "The page you requested does not exist.",
		MessageColor: "#ffb86c",
		Status:       http.StatusNotFound,
	}
}

// renderPage writes a page and logs render failures.
func (h *Handlers) renderPage(w http.ResponseWriter, page web.Page) {
	if err := h.pages.Render(w, page); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}
