// internal/app/features/userauth/provider.go
package userauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/oauthstate"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultDiscoveryURL is CILogon's discovery document.
const DefaultDiscoveryURL = "https://cilogon.org/.well-known/openid-configuration"

// DefaultScopes request the CILogon organization claims along with the
// standard OpenID ones.
var DefaultScopes = []string{oidc.ScopeOpenID, "email", "profile", "org.cilogon.userinfo"}

const wellKnown = "/.well-known/openid-configuration"

// Claims are the identity claims the login flow consumes.
type Claims struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	IdPName    string `json:"idp_name"`
	IdP        string `json:"idp"`
	ORCID      string `json:"eduPersonOrcid"`
}

// merge fills fields of c that are empty from o.
func (c *Claims) merge(o Claims) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Subject, o.Subject)
	fill(&c.Email, o.Email)
	fill(&c.Name, o.Name)
	fill(&c.GivenName, o.GivenName)
	fill(&c.FamilyName, o.FamilyName)
	fill(&c.IdPName, o.IdPName)
	fill(&c.IdP, o.IdP)
	fill(&c.ORCID, o.ORCID)
}

// Provider is the external identity provider as the login flow sees it.
type Provider interface {
	// AuthCodeURL returns the provider URL the browser is sent to.
	AuthCodeURL(ctx context.Context, flow *oauthstate.Flow) (string, error)
	// Exchange trades an authorization code for verified identity claims.
	Exchange(ctx context.Context, code string, flow *oauthstate.Flow) (*Claims, error)
}

// OIDCConfig configures an OIDC provider.
type OIDCConfig struct {
	DiscoveryURL string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration
}

// OIDC is a Provider backed by any OpenID Connect issuer. Discovery runs on
// first use and is retried on later requests until it succeeds.
type OIDC struct {
	cfg  OIDCConfig
	http *http.Client
	log  *zap.Logger

	mu       sync.Mutex
	provider *oidc.Provider
}

func NewOIDC(cfg OIDCConfig, logger *zap.Logger) *OIDC {
	if cfg.DiscoveryURL == "" {
		cfg.DiscoveryURL = DefaultDiscoveryURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &OIDC{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

// Issuer derives the issuer URL from the configured discovery URL.
func (o *OIDC) Issuer() string {
	return strings.TrimSuffix(strings.TrimRight(o.cfg.DiscoveryURL, "/"), wellKnown)
}

func (o *OIDC) discover(ctx context.Context) (*oidc.Provider, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.provider != nil {
		return o.provider, nil
	}
	ctx, cancel := context.WithTimeout(oidc.ClientContext(ctx, o.http), o.cfg.Timeout)
	defer cancel()

	p, err := oidc.NewProvider(ctx, o.Issuer())
	if err != nil {
		o.log.Warn("oidc discovery failed", zap.String("issuer", o.Issuer()), zap.Error(err))
		return nil, apperr.Upstream(apperr.ErrUpstreamUnavailable, err, "identity provider is unreachable")
	}
	o.provider = p
	return p, nil
}

func (o *OIDC) oauth2Config(p *oidc.Provider) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.cfg.ClientID,
		ClientSecret: o.cfg.ClientSecret,
		RedirectURL:  o.cfg.RedirectURL,
		Endpoint:     p.Endpoint(),
		Scopes:       o.cfg.Scopes,
	}
}

func (o *OIDC) AuthCodeURL(ctx context.Context, flow *oauthstate.Flow) (string, error) {
	p, err := o.discover(ctx)
	if err != nil {
		return "", err
	}
	return o.oauth2Config(p).AuthCodeURL(flow.State,
		oidc.Nonce(flow.Nonce),
		oauth2.S256ChallengeOption(flow.Verifier),
	), nil
}

func (o *OIDC) Exchange(ctx context.Context, code string, flow *oauthstate.Flow) (*Claims, error) {
	p, err := o.discover(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(oidc.ClientContext(ctx, o.http), o.cfg.Timeout)
	defer cancel()

	tok, err := o.oauth2Config(p).Exchange(ctx, code, oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, apperr.WithCode(apperr.Upstream(apperr.ErrUnauthorized, err, "authorization code was rejected by the identity provider"), "exchange_failed")
		}
		return nil, apperr.Upstream(apperr.ErrUpstreamUnavailable, err, "identity provider is unreachable")
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, apperr.WithCode(apperr.Unauthorized("identity provider returned no id token"), "exchange_failed")
	}
	idt, err := p.Verifier(&oidc.Config{ClientID: o.cfg.ClientID}).Verify(ctx, raw)
	if err != nil {
		return nil, apperr.WithCode(apperr.Upstream(apperr.ErrUnauthorized, err, "id token could not be verified"), "exchange_failed")
	}
	if idt.Nonce != flow.Nonce {
		return nil, apperr.WithCode(apperr.Unauthorized("id token nonce mismatch"), "exchange_failed")
	}

	var c Claims
	if err := idt.Claims(&c); err != nil {
		return nil, apperr.Upstream(apperr.ErrUpstreamData, err, "id token claims are malformed")
	}

	// CILogon puts the organization claims on the userinfo endpoint.
	if c.Email == "" || c.IdPName == "" {
		ui, err := p.UserInfo(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			o.log.Warn("oidc userinfo failed", zap.String("sub", c.Subject), zap.Error(err))
		} else {
			var more Claims
			if err := ui.Claims(&more); err != nil {
				o.log.Warn("oidc userinfo claims malformed", zap.Error(err))
			} else if more.Subject == "" || more.Subject == c.Subject {
				c.merge(more)
			}
		}
	}
	return &c, nil
}

var _ Provider = (*OIDC)(nil)
