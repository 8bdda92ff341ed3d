package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hatcher/taskchat/pkg/cronx"
	"github.com/hatcher/taskchat/pkg/csync"
	"github.com/hatcher/taskchat/pkg/jwtx"
	"github.com/hatcher/taskchat/pkg/logs"
	"github.com/hatcher/taskchat/pkg/pubsub"
	"github.com/hatcher/taskchat/pkg/safego"
	"github.com/hatcher/taskchat/pkg/slotstore"
)

// TokenSlotKey 凭证槽位的固定键名
const TokenSlotKey = "jwt_token"

const (
	defaultRefreshInterval  = 5 * time.Minute
	defaultRefreshThreshold = 5 * time.Minute
)

type Config struct {
	// RefreshInterval is how often the background watcher wakes up.
	RefreshInterval time.Duration `json:"refreshInterval" yaml:"refresh-interval" mapstructure:"refresh-interval"`
	// RefreshThreshold refreshes the credential when less than this remains
	// before expiry.
	RefreshThreshold time.Duration `json:"refreshThreshold" yaml:"refresh-threshold" mapstructure:"refresh-threshold"`
	// ForceLogoutOnRefreshFailure drops the session when a refresh attempt
	// fails instead of keeping the soon-to-expire credential.
	ForceLogoutOnRefreshFailure bool `json:"forceLogoutOnRefreshFailure" yaml:"force-logout-on-refresh-failure" mapstructure:"force-logout-on-refresh-failure"`
}

// Service owns the stored credential and the session derived from it.
//
// The session is recomputed from the token on every transition; a token
// that fails to decode is indistinguishable from an absent one, callers
// never see decode errors.
type Service interface {
	pubsub.Subscriber[Session]
	// Init reads the credential slot and resolves the initial session state.
	Init(ctx context.Context) (Session, error)
	// Login persists the token and derives the session from it. No network call.
	Login(ctx context.Context, token string) (Session, error)
	// Logout clears the credential slot.
	Logout(ctx context.Context) error
	Current() Session
	// Profile fetches the backend's record of the signed-in user, carrying
	// fields the token does not.
	Profile(ctx context.Context) (*User, error)
	IsAuthenticated() bool
	// Token returns the stored credential, empty when signed out.
	// Suitable as an httpx.TokenSource.
	Token() string
	// StartWatcher begins the periodic expiry check that refreshes the
	// credential shortly before it expires.
	StartWatcher(ctx context.Context)
	StopWatcher()
	Shutdown()
}

type service struct {
	*pubsub.Broker[Session]
	slots   slotstore.Store
	gateway Gateway
	cfg     Config

	session *csync.Value[Session]
	token   *csync.Value[string]
	cron    *cronx.StoppableCron
	now     func() time.Time
}

func NewService(slots slotstore.Store, gateway Gateway, cfg Config) Service {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = defaultRefreshThreshold
	}
	return &service{
		Broker:  pubsub.NewBroker[Session](),
		slots:   slots,
		gateway: gateway,
		cfg:     cfg,
		session: csync.NewValue(Session{Status: StatusUnknown}),
		token:   csync.NewValue(""),
		cron:    cronx.NewStoppableCron(),
		now:     time.Now,
	}
}

func (s *service) Init(ctx context.Context) (Session, error) {
	token, err := s.slots.Get(ctx, TokenSlotKey)
	if err != nil {
		return Session{}, err
	}
	session := s.sessionFromToken(token)
	if token != "" && !session.Authenticated() {
		// 过期或无法解码的凭证直接清掉
		if err := s.slots.Delete(ctx, TokenSlotKey); err != nil {
			logs.Warnf("failed to clear stale credential slot: %v", err)
		}
		token = ""
	}
	s.apply(token, session)
	return session, nil
}

func (s *service) Login(ctx context.Context, token string) (Session, error) {
	if err := s.slots.Set(ctx, TokenSlotKey, token); err != nil {
		return Session{}, err
	}
	session := s.sessionFromToken(token)
	s.apply(token, session)
	return session, nil
}

func (s *service) Logout(ctx context.Context) error {
	if err := s.slots.Delete(ctx, TokenSlotKey); err != nil {
		return err
	}
	s.apply("", Session{Status: StatusUnauthenticated})
	return nil
}

func (s *service) Current() Session {
	return s.session.Get()
}

func (s *service) Profile(ctx context.Context) (*User, error) {
	if !s.IsAuthenticated() {
		return nil, errors.Errorf("not signed in")
	}
	return s.gateway.CurrentUser(ctx)
}

func (s *service) IsAuthenticated() bool {
	return s.session.Get().Authenticated()
}

func (s *service) Token() string {
	return s.token.Get()
}

func (s *service) StartWatcher(ctx context.Context) {
	if s.cron.Running() {
		return
	}
	if _, err := s.cron.AddInterval(s.cfg.RefreshInterval, func() {
		safego.Go(ctx, func() {
			s.checkRefresh(ctx)
		})
	}); err != nil {
		logs.Errorf("failed to register credential refresh watcher: %v", err)
		return
	}
	s.cron.Start()
}

func (s *service) StopWatcher() {
	s.cron.Stop()
}

func (s *service) Shutdown() {
	s.cron.Stop()
	s.Broker.Shutdown()
}

// checkRefresh refreshes the credential when it is close to expiry.
// Refresh failure keeps the current session by default: the credential is
// still valid until its exp, next tick retries.
func (s *service) checkRefresh(ctx context.Context) {
	session := s.session.Get()
	if !session.Authenticated() {
		return
	}
	claims := &jwtx.Claims{ExpiresAt: session.ExpiresAt}
	if claims.Expired(s.now()) {
		// 凭证已过期，刷新也救不回来
		if err := s.Logout(ctx); err != nil {
			logs.Errorf("failed to drop expired session: %v", err)
		}
		return
	}
	if claims.Remaining(s.now()) >= s.cfg.RefreshThreshold {
		return
	}
	token, err := s.gateway.Refresh(ctx)
	if err != nil {
		logs.Warnf("credential refresh failed, keeping current session: %v", err)
		if s.cfg.ForceLogoutOnRefreshFailure {
			if err := s.Logout(ctx); err != nil {
				logs.Errorf("failed to force logout after refresh failure: %v", err)
			}
		}
		return
	}
	if _, err := s.Login(ctx, token); err != nil {
		logs.Errorf("failed to persist refreshed credential: %v", err)
	}
}

// sessionFromToken derives the session from a raw token. Empty, malformed
// and expired tokens all resolve to unauthenticated.
func (s *service) sessionFromToken(token string) Session {
	if token == "" {
		return Session{Status: StatusUnauthenticated}
	}
	claims, err := jwtx.ExtractClaims(token)
	if err != nil {
		logs.Infof("stored credential failed to decode, treating as absent: %v", err)
		return Session{Status: StatusUnauthenticated}
	}
	if claims.Expired(s.now()) {
		return Session{Status: StatusUnauthenticated}
	}
	return Session{
		Status:    StatusAuthenticated,
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt,
		IssuedAt:  claims.IssuedAt,
	}
}

func (s *service) apply(token string, session Session) {
	s.token.Set(token)
	s.session.Set(session)
	s.Publish(pubsub.UpdatedEvent, session)
}
