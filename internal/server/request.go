package server

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"instaweb/internal/core/domain"
)

const apiKeyHeader = "X-API-Key"

type startRequest struct {
	URL    string `json:"url" validate:"required,instagram_url"`
	Format string `json:"format" validate:"omitempty,oneof=video mp4 audio mp3"`
	Proxy  string `json:"proxy"`
	APIKey string `json:"api_key"`
}

type startReply struct {
	JobID string `json:"job_id"`
}

type errorReply struct {
	Error string `json:"error"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("instagram_url", func(fl validator.FieldLevel) bool {
		return domain.IsInstagramURL(fl.Field().String())
	})
	return v
}

// validationMessage turns the first failed rule into a client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Format" {
		return "Invalid format"
	}
	return "Invalid Instagram URL"
}

// authorized checks the key from the header, then from the body. An
// unset server key lets everything through.
func (s *Server) authorized(r *http.Request, bodyKey string) bool {
	if s.apiKey == "" {
		return true
	}
	key := r.Header.Get(apiKeyHeader)
	if key == "" {
		key = bodyKey
	}
	return key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

// clientID identifies the caller for rate limiting: the first
// X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
