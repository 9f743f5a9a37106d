package http

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

//go:embed templates/login.html
var templateFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templateFS, "templates/login.html"))

// authorizeParams are echoed through the login form as hidden fields.
var authorizeParams = []string{
	"response_type", "client_id", "redirect_uri", "scope", "state",
	"nonce", "code_challenge", "code_challenge_method",
}

type loginPage struct {
	Action     string
	ClientName string
	Scopes     []string
	Hidden     map[string]string
	Username   string
	Error      string
}

// AuthorizeHandler serves the authorization endpoint of the code flow.
type AuthorizeHandler struct {
	Authorize *service.AuthorizeService
}

// HandleGet godoc
//
//	@Summary		OAuth2 authorization endpoint
//	@Description	Validates an authorization code request and renders the login form.
//	@Description	An unknown client or unregistered redirect_uri is answered with 400; other errors redirect back to the client.
//	@Tags			OAuth2
//	@Produce		html
//	@Param			response_type			query	string	true	"Must be code"	default(code)
//	@Param			client_id				query	string	true	"Client identifier"
//	@Param			redirect_uri			query	string	true	"Registered redirect URI"
//	@Param			scope					query	string	false	"Space-delimited scopes"
//	@Param			state					query	string	false	"Opaque client state"
//	@Param			nonce					query	string	false	"Echoed in the ID token"
//	@Param			code_challenge			query	string	false	"PKCE code challenge"
//	@Param			code_challenge_method	query	string	false	"S256 or plain"	Enums(S256, plain)
//	@Success		200						{string}	string	"Login form"
//	@Success		302						{string}	string	"Redirect with error"
//	@Failure		400						{object}	authsdk.OAuth2Error
//	@Router			/connect/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	v, err := h.Authorize.Validate(r.Context(), authorizeRequest(query))
	if err != nil {
		h.writeAuthorizeError(w, r, query, err)
		return
	}
	h.renderLogin(w, r, http.StatusOK, v, query, "", "")
}

// HandlePost godoc
//
//	@Summary		Login form submission
//	@Description	Authenticates a user and redirects to the client with an authorization code.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			username	formData	string	true	"Username"
//	@Param			password	formData	string	true	"Password"
//	@Success		302			{string}	string	"Redirect with code and state"
//	@Failure		401			{string}	string	"Login form with an error"
//	@Router			/connect/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	form := r.PostForm
	v, err := h.Authorize.Validate(r.Context(), authorizeRequest(form))
	if err != nil {
		h.writeAuthorizeError(w, r, form, err)
		return
	}

	username := strings.TrimSpace(form.Get("username"))
	resp, err := h.Authorize.Login(r.Context(), v, username, form.Get("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.renderLogin(w, r, http.StatusUnauthorized, v, form, username, "Invalid username or password.")
		return
	}
	if err != nil {
		slogx.FromContext(r.Context()).Error("authorization code issuance failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	target, err := redirectWith(resp.RedirectURI, url.Values{"code": {resp.Code}}, resp.State)
	if err != nil {
		authsdk.ErrServerError.WriteError(w)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func authorizeRequest(v url.Values) service.AuthorizeRequest {
	get := func(k string) string { return strings.TrimSpace(v.Get(k)) }
	return service.AuthorizeRequest{
		ResponseType:        get("response_type"),
		ClientID:            get("client_id"),
		RedirectURI:         get("redirect_uri"),
		Scope:               strings.Fields(v.Get("scope")),
		State:               get("state"),
		Nonce:               get("nonce"),
		CodeChallenge:       get("code_challenge"),
		CodeChallengeMethod: get("code_challenge_method"),
	}
}

// writeAuthorizeError follows RFC 6749 section 4.1.2.1: errors about the
// client or redirect URI are shown to the user, everything else goes back
// to the client.
func (h *AuthorizeHandler) writeAuthorizeError(w http.ResponseWriter, r *http.Request, params url.Values, err error) {
	log := slogx.FromContext(r.Context())

	if errors.Is(err, service.ErrInvalidClient) || errors.Is(err, service.ErrInvalidRedirect) {
		log.Info("authorize request rejected", "err", err, "client_id", params.Get("client_id"))
		code := authsdk.ErrorCodeInvalidRequest
		if errors.Is(err, service.ErrInvalidClient) {
			code = authsdk.ErrorCodeInvalidClient
		}
		authsdk.NewOAuth2Error(http.StatusBadRequest, code, service.Description(err)).WriteError(w)
		return
	}

	oe := oauth2Error(err)
	if oe.StatusCode >= http.StatusInternalServerError {
		log.Error("authorize request failed", "err", err)
		oe.WriteError(w)
		return
	}

	q := url.Values{"error": {oe.Code}}
	if oe.Description != "" {
		q.Set("error_description", oe.Description)
	}
	target, perr := redirectWith(strings.TrimSpace(params.Get("redirect_uri")), q, params.Get("state"))
	if perr != nil {
		oe.WriteError(w)
		return
	}
	log.Debug("authorize error redirected to client", "error", oe.Code)
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthorizeHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, v *service.ValidatedAuthorize, params url.Values, username, msg string) {
	hidden := make(map[string]string, len(authorizeParams))
	for _, k := range authorizeParams {
		if val := params.Get(k); val != "" {
			hidden[k] = val
		}
	}

	name := v.Client.Name
	if name == "" {
		name = v.Client.ID
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Frame-Options", "DENY")
	w.WriteHeader(status)
	err := loginTemplate.Execute(w, loginPage{
		Action:     authsdk.PathAuthorize,
		ClientName: name,
		Scopes:     v.Scopes,
		Hidden:     hidden,
		Username:   username,
		Error:      msg,
	})
	if err != nil {
		slogx.FromContext(r.Context()).Error("render login form", "err", err)
	}
}

// redirectWith appends params and state to a redirect URI, keeping any
// query it already has.
func redirectWith(base string, params url.Values, state string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
