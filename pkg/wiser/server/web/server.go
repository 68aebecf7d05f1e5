// Package web exposes the vault operations over HTTP.
package web

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/wiser-pay/wiser-server/pkg/currency"
	"github.com/wiser-pay/wiser-server/pkg/rate"
	"github.com/wiser-pay/wiser-server/pkg/wiser/authority"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/vault"
)

const maxRequestBodySize = 1 << 16

// PublicKeyProvider returns the authority public key, or nil when it is not
// available.
type PublicKeyProvider interface {
	GetPublicKey(ctx context.Context) ed25519.PublicKey
}

type Server struct {
	log  *logrus.Entry
	conf *conf

	quoter      *currency.Quoter
	balances    *vault.BalanceReader
	withdrawals *vault.WithdrawService
	initializer *vault.Initializer
	authority   PublicKeyProvider

	withdrawLimiter rate.Limiter
	trustedProxies  []*net.IPNet
}

func NewServer(
	configProvider ConfigProvider,
	quoter *currency.Quoter,
	balances *vault.BalanceReader,
	withdrawals *vault.WithdrawService,
	initializer *vault.Initializer,
	authority PublicKeyProvider,
) *Server {
	conf := configProvider()
	log := logrus.StandardLogger().WithField("type", "wiser/server/web")

	trustedProxies, err := parseTrustedProxies(conf.trustedProxies.Get(context.Background()))
	if err != nil {
		log.WithError(err).Warn("ignoring trusted proxies, forwarded headers will not be honoured")
		trustedProxies = nil
	}

	return &Server{
		log:             log,
		conf:            conf,
		quoter:          quoter,
		balances:        balances,
		withdrawals:     withdrawals,
		initializer:     initializer,
		authority:       authority,
		withdrawLimiter: rate.NewLocalRateLimiter(xrate.Limit(conf.withdrawRateLimit.Get(context.Background()))),
		trustedProxies:  trustedProxies,
	}
}

// RegisterWithHTTP mounts the API routes on r, both at the root and under
// /v1.
func (s *Server) RegisterWithHTTP(r chi.Router) {
	r.Use(s.withRequestID)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	s.registerRoutes(r)
	r.Route("/v1", s.registerRoutes)
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Post("/quote", s.quote)
	r.Get("/vault", s.vaultInfo)
	r.Get("/balance/{address}", s.balance)
	r.Get("/authority", s.authorityPublicKey)

	r.Group(func(r chi.Router) {
		r.Use(s.withRateLimit(s.withdrawLimiter))
		r.Post("/withdraw", s.withdraw)
		r.Post("/withdraw/initialize", s.initialize)
	})

	r.Get("/internal/authority-key", s.authorityKey)
}

// Handler returns a router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterWithHTTP(r)
	return r
}

type quoteRequest struct {
	UsdAmount *float64 `json:"usdAmount"`
}

type withdrawRequest struct {
	Recipient string   `json:"recipient"`
	Amount    *float64 `json:"amount,omitempty"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

type balanceResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type keyResponse struct {
	Key string `json:"key"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil || req.UsdAmount == nil {
		s.writeError(w, r, currency.ErrInvalidInput)
		return
	}

	quote, err := s.quoter.Quote(r.Context(), *req.UsdAmount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) vaultInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.balances.GetVaultInfo(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	account, err := common.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	balance, err := s.balances.GetBalance(r.Context(), account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &balanceResponse{
		Address: account.String(),
		Balance: balance,
	})
}

func (s *Server) authorityPublicKey(w http.ResponseWriter, r *http.Request) {
	pub := s.authority.GetPublicKey(r.Context())
	if pub == nil {
		s.writeError(w, r, vault.ErrAuthorityNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, &publicKeyResponse{PublicKey: base58.Encode(pub)})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, errors.Wrap(vault.ErrInvalidInput, err.Error()))
		return
	}
	if len(req.Recipient) == 0 {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "Recipient address is required"})
		return
	}

	amount := s.conf.defaultWithdrawAmountSol.Get(r.Context())
	if req.Amount != nil {
		amount = *req.Amount
	}

	sig, err := s.withdrawals.Withdraw(r.Context(), amount, req.Recipient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &signatureResponse{Signature: sig.String()})
}

func (s *Server) initialize(w http.ResponseWriter, r *http.Request) {
	sig, err := s.initializer.Initialize(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &signatureResponse{Signature: sig.String()})
}

// authorityKey serves the authority secret to the trusted collaborator
// holding the client key. The route does not exist unless a client key is
// configured. Requests carry a key request token signed by the client key.
func (s *Server) authorityKey(w http.ResponseWriter, r *http.Request) {
	clientKey := s.conf.authorityKeyClientPublicKey.Get(r.Context())
	if len(clientKey) == 0 {
		http.NotFound(w, r)
		return
	}

	client, err := common.NewAccountFromPublicKeyString(clientKey)
	if err != nil {
		s.log.WithError(err).Warn("invalid authority key client public key configured")
		http.NotFound(w, r)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := authority.VerifyKeyRequestToken(token, client.PublicKey().ToBytes()); err != nil {
		s.log.WithError(err).WithField("peer", peerIP(r)).Info("rejected authority key request")
		writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: "unauthorized"})
		return
	}

	key := s.conf.authoritySecretKey.Get(r.Context())
	if len(key) == 0 {
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: "Private key not configured"})
		return
	}

	s.log.WithField("peer", peerIP(r)).Info("authority key served")
	writeJSON(w, http.StatusOK, &keyResponse{Key: key})
}

func (s *Server) withRateLimit(limiter rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(s.clientIP(r))
			if err != nil {
				s.log.WithError(err).Warn("failure checking rate limit")
			} else if !allowed {
				writeJSON(w, http.StatusTooManyRequests, &errorResponse{Error: "rate limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if len(id) == 0 {
			id = uuid.NewString()
		}

		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"uri":        r.RequestURI,
			"status":     ww.Status(),
			"size":       ww.BytesWritten(),
			"duration":   time.Since(start),
		}).Debug("handled request")
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)

	log := s.log.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"uri":        r.RequestURI,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		log.Warn("request failed")
	} else {
		log.Debug("request rejected")
	}

	writeJSON(w, status, &errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP is the socket peer, unless the peer is a trusted proxy. Then the
// right most X-Forwarded-For entry not belonging to a trusted proxy is used.
func (s *Server) clientIP(r *http.Request) string {
	peer := peerIP(r)
	if !s.isTrustedProxy(net.ParseIP(peer)) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			break
		}
		if !s.isTrustedProxy(ip) {
			return ip.String()
		}
	}
	return peer
}

func (s *Server) isTrustedProxy(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range s.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func peerIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// parseTrustedProxies parses a comma separated list of CIDRs and addresses.
func parseTrustedProxies(raw string) ([]*net.IPNet, error) {
	var networks []*net.IPNet
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if len(entry) == 0 {
			continue
		}

		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, errors.Errorf("invalid trusted proxy address %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 8 * net.IPv4len
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid trusted proxy network %q", entry)
		}
		networks = append(networks, network)
	}
	return networks, nil
}
