package factus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/pkg/config"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// Verificar en tiempo de compilación que Client implementa InvoicingGateway.
var _ billing.InvoicingGateway = (*Client)(nil)

var tracer = otel.Tracer("software-pos/factus")

// maxResponseBytes límite de lectura del cuerpo de respuesta.
const maxResponseBytes = 1 << 20

// Client adaptador HTTP de la API de Factus (OAuth2 password grant + validación de documentos).
// Usa net/http de la librería estándar; Factus no publica un SDK para Go.
type Client struct {
	cfg        config.FactusConfig
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	authMu     sync.Mutex
	now        func() time.Time
	log        *logger.Logger
}

// NewClient construye el cliente. tokens nil usa una caché en memoria.
func NewClient(cfg config.FactusConfig, tokens TokenStore, log *logger.Logger) *Client {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			// El orquestador impone además su propio context.WithTimeout.
			Timeout: cfg.Timeout(),
		},
		tokens: tokens,
		now:    time.Now,
		log:    log.With("factus"),
	}
}

// Submit envía el documento a validación. Devuelve error solo ante fallas de transporte
// (incluidas respuestas 5xx); un rechazo llega como Accepted=false con la lista de errores.
func (c *Client) Submit(ctx context.Context, doc *billing.FiscalDocument) (*billing.GatewayResponse, error) {
	endpoint, err := endpointFor(doc.Kind)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(buildRequest(doc))
	if err != nil {
		return nil, fmt.Errorf("factus: serializar documento: %w", err)
	}

	ctx, span := tracer.Start(ctx, "factus.submit", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.route", endpoint), attribute.String("document.number", doc.Number))

	out := &billing.GatewayResponse{Request: body}
	status, raw, err := c.post(ctx, endpoint, body)
	out.HTTPStatus = status
	out.Response = raw
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusInternalServerError {
		return out, fmt.Errorf("%w: Factus HTTP %d", domain.ErrGatewayUnavailable, status)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil && status < http.StatusMultipleChoices {
		return out, fmt.Errorf("%w: respuesta ilegible: %v", domain.ErrGatewayUnavailable, err)
	}

	if status >= http.StatusMultipleChoices {
		out.Errors = errorList(env)
		if len(out.Errors) == 0 {
			out.Errors = []string{fmt.Sprintf("Factus HTTP %d", status)}
		}
		return out, nil
	}

	result := env.Data.Bill
	if doc.Kind == billing.KindCreditNote {
		result = env.Data.CreditNote
	}
	if result == nil {
		return out, fmt.Errorf("%w: respuesta sin documento validado", domain.ErrGatewayUnavailable)
	}
	out.Accepted = true
	out.BillID = result.ID
	out.Number = result.Number
	out.CUFE = result.CUFE
	out.QRURL = result.QR
	return out, nil
}

// post hace el request autenticado. Ante un 401 invalida el token y reintenta una sola vez.
func (c *Client) post(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return 0, nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
		if err != nil {
			return 0, nil, fmt.Errorf("crear HTTP request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		status, raw, err := c.do(req)
		if err != nil {
			return 0, nil, err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			c.log.Warn().Str("endpoint", endpoint).Msg("token rechazado por Factus; se renueva")
			if err := c.tokens.Invalidate(ctx); err != nil {
				c.log.Warn().Err(err).Msg("no se pudo invalidar el token en caché")
			}
			continue
		}
		return status, raw, nil
	}
}

// accessToken devuelve el token en caché o autentica de nuevo si vence en menos de 5 minutos.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	tok, ok, err := c.tokens.Get(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("caché de token no disponible; se autentica de nuevo")
	}
	if ok && tok.usable(c.now()) {
		return tok.AccessToken, nil
	}
	return c.authenticate(ctx)
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {c.cfg.Username},
		"password":      {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("crear request de autenticación: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	status, raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("autenticar con Factus: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("autenticar con Factus: HTTP %d: %s", status, string(raw))
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("deserializar token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("autenticar con Factus: respuesta sin access_token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = 3600
	}
	tok := Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	if err := c.tokens.Put(ctx, tok); err != nil {
		c.log.Warn().Err(err).Msg("no se pudo guardar el token en caché")
	}
	c.log.Info().Time("expires_at", tok.ExpiresAt).Msg("token de Factus obtenido")
	return tok.AccessToken, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, nil, fmt.Errorf("timeout o cancelación: %w", ctxErr)
		}
		return 0, nil, fmt.Errorf("llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("leer respuesta: %w", err)
	}
	return resp.StatusCode, raw, nil
}
