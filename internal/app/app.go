// Package app builds the backend from configuration and exposes its router.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/lhclegal/lhc-backend/internal/account"
	"github.com/lhclegal/lhc-backend/internal/auth"
	"github.com/lhclegal/lhc-backend/internal/config"
	"github.com/lhclegal/lhc-backend/internal/contact"
	"github.com/lhclegal/lhc-backend/internal/db"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/mail"
	"github.com/lhclegal/lhc-backend/internal/metrics"
	"github.com/lhclegal/lhc-backend/internal/middleware"
	"github.com/lhclegal/lhc-backend/internal/tokens"
	"github.com/lhclegal/lhc-backend/internal/users"
	"github.com/lhclegal/lhc-backend/internal/utils"
	"github.com/lhclegal/lhc-backend/internal/webhooks"
)

const (
	apiName    = "LHC Legal & Consulting API"
	apiVersion = "1.0.0"
)

// App holds the process-wide services shared by every handler.
type App struct {
	Config  config.Config
	Log     logger.Logger
	Metrics *metrics.Metrics

	// DB is nil when running on in-memory stores.
	DB    *gorm.DB
	Users users.Store
	Leads contact.Store

	Sessions *tokens.SessionService
	Signer   *tokens.Signer

	// Mailer delivers synchronously. Recovery may deliver in the background.
	Mailer   mail.Mailer
	Recovery mail.Mailer

	async *mail.Async
}

// Option customises New. Tests use it to inject stores and mailers.
type Option func(*App)

// WithStores replaces the database-backed stores.
func WithStores(u users.Store, c contact.Store) Option {
	return func(a *App) {
		a.Users = u
		a.Leads = c
	}
}

// WithMailer replaces the configured email transport.
func WithMailer(m mail.Mailer) Option {
	return func(a *App) { a.Mailer = m }
}

// New wires the application. Without DATABASE_URL it falls back to
// in-memory stores, which is only allowed outside production.
func New(cfg config.Config, log logger.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.Auth.BcryptCost > 0 {
		users.SetHashCost(cfg.Auth.BcryptCost)
	}

	if a.Users == nil || a.Leads == nil {
		if err := a.openStores(); err != nil {
			return nil, err
		}
	}

	a.Sessions = tokens.NewSessionService(tokens.SessionConfig{
		Secret:     cfg.Auth.JWTSecretKey,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		Cookies:    tokens.CookieConfig{Secure: cfg.Auth.CookieSecure},
	})
	a.Signer = tokens.NewSigner(cfg.Auth.SecretKey)

	if a.Mailer == nil {
		base, err := newTransport(cfg.Mail, log)
		if err != nil {
			return nil, err
		}
		a.Mailer = base
	}
	a.Mailer = mail.NewLimited(a.Mailer, cfg.Mail.MaxEmailsPerDay)

	var recovery mail.Mailer
	if cfg.Mail.Async {
		a.async = mail.NewAsync(a.Mailer, log.With("component", "mail"), cfg.Mail.Timeout)
		a.async.OnResult = func(err error) { a.Metrics.Email("recovery", err) }
		recovery = a.async
	} else {
		recovery = mail.MailerFunc(func(ctx context.Context, msg mail.Message) error {
			err := a.Mailer.Send(ctx, msg)
			a.Metrics.Email("recovery", err)
			return err
		})
	}
	a.Recovery = recovery

	return a, nil
}

func (a *App) openStores() error {
	if a.Config.DatabaseURL == "" {
		if a.Config.IsProduction() {
			return config.ErrMissingDatabase
		}
		a.Log.Warn("DATABASE_URL not set, using in-memory stores")
		a.Users = users.NewMemoryStore()
		a.Leads = contact.NewMemoryStore()
		return nil
	}

	d, err := db.Connect(a.Config.DatabaseURL, db.Options{})
	if err != nil {
		return err
	}
	if err := users.Init(d); err != nil {
		return err
	}
	if err := contact.Init(d); err != nil {
		return err
	}

	a.DB = d
	a.Users = users.NewGormStore(d)
	a.Leads = contact.NewGormStore(d)
	return nil
}

func newTransport(cfg config.Mail, log logger.Logger) (mail.Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		return mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.Server,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.DefaultSender,
		})
	case "sendgrid":
		return mail.NewSendGrid(mail.SendGridConfig{
			BaseURL: cfg.SendGridURL,
			APIKey:  cfg.Password,
			From:    cfg.DefaultSender,
			Timeout: cfg.Timeout,
		}), nil
	case "log", "":
		return mail.LogMailer{Log: log.With("component", "mail")}, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// revocation returns the session revocation checker, or nil when disabled.
func (a *App) revocation() middleware.RevocationChecker {
	if !a.Config.Auth.RevokeOnPasswordChange {
		return nil
	}
	return users.Revocation{Store: a.Users}
}

// Router builds the HTTP handler for the whole API.
func (a *App) Router() http.Handler {
	cfg := a.Config
	revoked := a.revocation()
	session := middleware.SessionMiddleware(a.Sessions, revoked)

	policy := users.DefaultPasswordPolicy()
	policy.MinLength = cfg.Auth.PasswordMinLength

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Use(a.Metrics.Middleware)

	r.Get("/api/health", a.health)
	r.Get("/api/info", a.info)
	r.Handle("/metrics", a.Metrics.Handler())

	authHandler := &auth.Handler{
		Users:           a.Users,
		Sessions:        a.Sessions,
		Policy:          policy,
		UniqueUsernames: cfg.Auth.UniqueUsernames,
		Revocation:      revoked,
		Log:             a.Log.With("component", "auth"),
		Metrics:         a.Metrics,
	}
	r.Mount("/api/auth", auth.SetupRoutes(authHandler, session))

	contactHandler := &contact.Handler{
		Store:    a.Leads,
		Users:    a.Users,
		Mailer:   a.Mailer,
		Receiver: cfg.Mail.DefaultReceiver,
		Log:      a.Log.With("component", "contact"),
		Metrics:  a.Metrics,
	}
	accountHandler := &account.Handler{
		Users:                  a.Users,
		Signer:                 a.Signer,
		Sessions:               a.Sessions,
		Mailer:                 a.Recovery,
		Policy:                 policy,
		RecoveryMaxAge:         cfg.Auth.RecoveryMaxAge,
		FrontendURL:            cfg.FrontendURL,
		PublicAPIURL:           cfg.PublicAPIURL,
		RevokeOnPasswordChange: cfg.Auth.RevokeOnPasswordChange,
		Log:                    a.Log.With("component", "account"),
		Metrics:                a.Metrics,
	}
	r.Mount("/api/account", account.SetupRoutes(accountHandler, session,
		contact.SetupRoutes(contactHandler, middleware.OptionalSession(a.Sessions))))
	r.Mount("/api/admin/contact", contact.SetupAdminRoutes(contactHandler, session))

	usersHandler := &users.Handler{Store: a.Users, Log: a.Log.With("component", "users")}
	r.Mount("/api/users", users.SetupRoutes(usersHandler, session, middleware.AdminMiddleware))

	if cfg.FormWebhookSecret != "" {
		r.Mount("/api/webhooks", webhooks.SetupRoutes(&webhooks.Handler{
			Leads:   a.Leads,
			Secret:  cfg.FormWebhookSecret,
			Log:     a.Log.With("component", "webhooks"),
			Metrics: a.Metrics,
		}))
	}

	return r
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "API funcionando correctamente",
	})
}

func (a *App) info(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"name":        apiName,
		"version":     apiVersion,
		"environment": a.Config.Env,
		"endpoints": map[string][]string{
			"auth": {"/api/auth/signup", "/api/auth/login", "/api/auth/refresh", "/api/auth/logout", "/api/auth/profile"},
			"account": {
				"/api/account/request-password-reset", "/api/account/reset-password",
				"/api/account/request-email-change", "/api/account/confirm-email",
				"/api/account/update-profile", "/api/account/change-password",
				"/api/account/contact",
			},
			"admin":   {"/api/users", "/api/admin/contact"},
			"general": {"/api/health", "/api/info", "/metrics"},
		},
	})
}

// Close waits for background email and releases the database pool.
func (a *App) Close() error {
	if a.async != nil {
		a.async.Wait()
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
