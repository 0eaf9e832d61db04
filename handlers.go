package captcha

import (
	"log"
	"net/http"
)

// ChallengeHandler serves a fresh challenge for action as JSON.
func ChallengeHandler(svc CaptchaService, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := svc
		if s == nil {
			s = defaultService()
		}
		challenge, err := s.Challenge(r.Context(), action)
		if err != nil {
			log.Printf("[captcha] failed to create challenge: %v\n", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Failed to create challenge",
			})
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, challenge)
	}
}
