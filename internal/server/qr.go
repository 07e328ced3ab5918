package server

import (
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// handleQR renders a PNG QR code for the game's join link so the host
// screen can show a scannable code next to the typed access code.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.FindByIDOrCode(r.PathValue("id"))
	if !ok || g.AccessCode == "" {
		http.NotFound(w, r)
		return
	}
	base := strings.TrimSuffix(s.cfg.PublicURL, "/")
	if base == "" {
		base = "http://" + r.Host
	}
	png, err := qrcode.Encode(base+"/join/"+g.AccessCode, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
