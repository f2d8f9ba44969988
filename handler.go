package instanceinfo

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/friendsofgo/errors"
)

type InfoHandler struct {
	provider InfoProvider
	log      LogFn
}

// NewInfoHandler creates an http.Handler serving the provider's Info as JSON on GET /
func NewInfoHandler(provider InfoProvider, conf HandlerConfig) (*InfoHandler, error) {

	if provider == nil {
		return nil, errors.New("info provider must not be nil")
	}

	if conf.Log == nil {
		conf.Log = log.Printf
	}

	return &InfoHandler{
		provider: provider,
		log:      conf.Log,
	}, nil
}

func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	info, err := h.provider.GetInfo(r.Context())
	if err != nil {
		h.log("[Info Handler] failed serving info - %s", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(info)
	if err != nil {
		h.log("[Info Handler] failed encoding info - %s", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
