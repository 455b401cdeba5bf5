package bywhen

import (
	"bytes"
	"github.com/slack-go/slack"
	"io"
	"log/slog"
	"net/http"
)

// A SignatureVerificationFilter rejects requests that were not signed by Slack with the app's signing secret.
type SignatureVerificationFilter struct {
	signingSecret string
	logger        *slog.Logger
}

// NewSignatureVerificationFilter returns a SignatureVerificationFilter for the signing secret.
// An empty secret disables verification.
func NewSignatureVerificationFilter(signingSecret string) *SignatureVerificationFilter {
	return &SignatureVerificationFilter{
		signingSecret: signingSecret,
		logger:        slog.Default(),
	}
}

// Decorate returns a http.HandlerFunc that only calls handle if the request's signature can be verified.
// Requests other than POST are passed on as is.
func (s *SignatureVerificationFilter) Decorate(handle http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.signingSecret == "" || r.Method != http.MethodPost {
			handle(w, r)
			return
		}
		verifier, err := slack.NewSecretsVerifier(r.Header, s.signingSecret)
		if err != nil {
			s.logger.Warn("rejecting unsigned request", "err", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			s.logger.Warn("failed to read request body", "err", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		_, _ = verifier.Write(body)
		if err = verifier.Ensure(); err != nil {
			s.logger.Warn("rejecting request with invalid signature", "err", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handle(w, r)
	}
}

// WithLogger sets the filter's logger.
func (s *SignatureVerificationFilter) WithLogger(logger *slog.Logger) *SignatureVerificationFilter {
	s.logger = logger
	return s
}
