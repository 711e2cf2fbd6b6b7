package factus

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

var _ billing.InvoicingGateway = (*SimulatedGateway)(nil)

// SimulatedGateway proveedor de desarrollo (FACTUS_ENVIRONMENT=dev): valida localmente los datos
// mínimos y acepta el documento con un CUFE derivado del código de referencia.
type SimulatedGateway struct {
	seq atomic.Int64
	log *logger.Logger
}

// NewSimulatedGateway construye el proveedor simulado.
func NewSimulatedGateway(log *logger.Logger) *SimulatedGateway {
	return &SimulatedGateway{log: log.With("factus-simulado")}
}

func (g *SimulatedGateway) Submit(ctx context.Context, doc *billing.FiscalDocument) (*billing.GatewayResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(buildRequest(doc))
	if err != nil {
		return nil, fmt.Errorf("factus: serializar documento: %w", err)
	}
	out := &billing.GatewayResponse{Request: body}

	var errs []string
	if doc.Customer.Identification == "" {
		errs = append(errs, "customer.identification: el campo es obligatorio")
	}
	if len(doc.Items) == 0 {
		errs = append(errs, "items: el documento debe tener al menos un ítem")
	}
	if len(errs) > 0 {
		out.HTTPStatus = http.StatusUnprocessableEntity
		out.Errors = errs
		out.Response, _ = json.Marshal(map[string]any{"status": "Validation error", "data": map[string]any{"errors": errs}})
		return out, nil
	}

	sum := sha512.Sum384([]byte(doc.ReferenceCode + doc.Number))
	res := documentResult{
		ID:     g.seq.Add(1),
		Number: doc.Number,
		CUFE:   hex.EncodeToString(sum[:]),
	}
	res.QR = "https://catalogo-vpfe-hab.dian.gov.co/document/searchqr?documentkey=" + res.CUFE

	key := "bill"
	if doc.Kind == billing.KindCreditNote {
		key = "credit_note"
	}
	out.Response, _ = json.Marshal(map[string]any{"status": "Created", "data": map[string]any{key: res}})
	out.HTTPStatus = http.StatusCreated
	out.Accepted = true
	out.BillID = res.ID
	out.Number = res.Number
	out.CUFE = res.CUFE
	out.QRURL = res.QR
	g.log.Debug().Str("reference_code", doc.ReferenceCode).Str("number", doc.Number).Msg("documento aceptado (simulado)")
	return out, nil
}
