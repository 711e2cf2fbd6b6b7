package factus

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
)

const (
	operationTypeStandard = "10"
	// customizationWithInvoice nota crédito que referencia una factura electrónica.
	customizationWithInvoice = 20
)

// ── Estructuras del protocolo Factus ─────────────────────────────────────────

type billRequest struct {
	NumberingRangeID  int64                    `json:"numbering_range_id,omitempty"`
	ReferenceCode     string                   `json:"reference_code"`
	Observation       string                   `json:"observation,omitempty"`
	PaymentForm       string                   `json:"payment_form"`
	PaymentDueDate    string                   `json:"payment_due_date,omitempty"`
	PaymentMethodCode string                   `json:"payment_method_code"`
	OperationType     string                   `json:"operation_type"`
	Establishment     *establishmentPayload    `json:"establishment,omitempty"`
	Customer          customerPayload          `json:"customer"`
	Items             []itemPayload            `json:"items"`
	AllowanceCharges  []allowanceChargePayload `json:"allowance_charges,omitempty"`
}

type creditNoteRequest struct {
	NumberingRangeID      int64           `json:"numbering_range_id,omitempty"`
	CorrectionConceptCode int             `json:"correction_concept_code"`
	CustomizationID       int             `json:"customization_id"`
	BillID                int64           `json:"bill_id"`
	ReferenceCode         string          `json:"reference_code"`
	Observation           string          `json:"observation,omitempty"`
	PaymentMethodCode     string          `json:"payment_method_code"`
	Customer              customerPayload `json:"customer"`
	Items                 []itemPayload   `json:"items"`
}

type customerPayload struct {
	IdentificationDocumentID int    `json:"identification_document_id"`
	Identification           string `json:"identification"`
	DV                       string `json:"dv,omitempty"`
	Company                  string `json:"company,omitempty"`
	TradeName                string `json:"trade_name,omitempty"`
	Names                    string `json:"names,omitempty"`
	Address                  string `json:"address,omitempty"`
	Email                    string `json:"email,omitempty"`
	Phone                    string `json:"phone,omitempty"`
	LegalOrganizationID      int    `json:"legal_organization_id"`
	TributeID                int    `json:"tribute_id"`
	MunicipalityID           int    `json:"municipality_id,omitempty"`
}

type establishmentPayload struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	PhoneNumber    string `json:"phone_number"`
	Email          string `json:"email"`
	MunicipalityID int    `json:"municipality_id"`
}

type itemPayload struct {
	CodeReference    string               `json:"code_reference"`
	Name             string               `json:"name"`
	Note             string               `json:"note,omitempty"`
	Quantity         json.Number          `json:"quantity"`
	DiscountRate     json.Number          `json:"discount_rate"`
	Price            json.Number          `json:"price"`
	TaxRate          string               `json:"tax_rate"`
	UnitMeasureID    int                  `json:"unit_measure_id"`
	StandardCodeID   int                  `json:"standard_code_id"`
	IsExcluded       int                  `json:"is_excluded"`
	TributeID        int                  `json:"tribute_id"`
	WithholdingTaxes []withholdingPayload `json:"withholding_taxes,omitempty"`
}

type withholdingPayload struct {
	Code               string      `json:"code"`
	WithholdingTaxRate json.Number `json:"withholding_tax_rate"`
}

type allowanceChargePayload struct {
	ConceptType string      `json:"concept_type"`
	IsSurcharge bool        `json:"is_surcharge"`
	Reason      string      `json:"reason"`
	BaseAmount  json.Number `json:"base_amount"`
	Amount      json.Number `json:"amount"`
}

// envelope respuesta genérica: {status, message, data:{bill|credit_note, errors}}.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Bill       *documentResult            `json:"bill"`
		CreditNote *documentResult            `json:"credit_note"`
		Errors     map[string]json.RawMessage `json:"errors"`
	} `json:"data"`
}

type documentResult struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	CUFE   string `json:"cufe"`
	QR     string `json:"qr"`
}

type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// ── Construcción del request ────────────────────────────────────────────────

// endpointFor ruta de validación según el tipo de documento.
func endpointFor(kind billing.DocumentKind) (string, error) {
	switch kind {
	case billing.KindInvoice:
		return "/v1/bills/validate", nil
	case billing.KindCreditNote:
		return "/v1/credit-notes/validate", nil
	}
	return "", fmt.Errorf("factus: tipo de documento no soportado: %q", kind)
}

// buildRequest traduce el documento fiscal al cuerpo JSON que espera Factus.
func buildRequest(doc *billing.FiscalDocument) any {
	customer := customerPayload{
		IdentificationDocumentID: doc.Customer.IdentificationDocumentID,
		Identification:           doc.Customer.Identification,
		DV:                       doc.Customer.DV,
		Company:                  doc.Customer.Company,
		TradeName:                doc.Customer.TradeName,
		Names:                    doc.Customer.Names,
		Address:                  doc.Customer.Address,
		Email:                    doc.Customer.Email,
		Phone:                    doc.Customer.Phone,
		LegalOrganizationID:      doc.Customer.LegalOrganizationID,
		TributeID:                doc.Customer.TributeID,
		MunicipalityID:           doc.Customer.MunicipalityID,
	}
	items := make([]itemPayload, 0, len(doc.Items))
	for _, it := range doc.Items {
		p := itemPayload{
			CodeReference:  it.CodeReference,
			Name:           it.Name,
			Note:           it.Note,
			Quantity:       num(it.Quantity),
			DiscountRate:   num(it.DiscountRate),
			Price:          num(it.Price),
			TaxRate:        it.TaxRate.StringFixed(2),
			UnitMeasureID:  it.UnitMeasureID,
			StandardCodeID: it.StandardCodeID,
			TributeID:      it.TributeID,
		}
		if it.IsExcluded {
			p.IsExcluded = 1
		}
		for _, w := range it.Withholdings {
			p.WithholdingTaxes = append(p.WithholdingTaxes, withholdingPayload{Code: w.Code, WithholdingTaxRate: num(w.Rate)})
		}
		items = append(items, p)
	}

	if doc.Kind == billing.KindCreditNote {
		return creditNoteRequest{
			NumberingRangeID:      doc.GatewayRangeID,
			CorrectionConceptCode: doc.CorrectionConceptCode,
			CustomizationID:       customizationWithInvoice,
			BillID:                doc.BillID,
			ReferenceCode:         doc.ReferenceCode,
			Observation:           doc.Observation,
			PaymentMethodCode:     doc.PaymentMethodCode,
			Customer:              customer,
			Items:                 items,
		}
	}

	req := billRequest{
		NumberingRangeID:  doc.GatewayRangeID,
		ReferenceCode:     doc.ReferenceCode,
		Observation:       doc.Observation,
		PaymentForm:       fmt.Sprint(doc.PaymentForm),
		PaymentMethodCode: doc.PaymentMethodCode,
		OperationType:     operationTypeStandard,
		Customer:          customer,
		Items:             items,
	}
	if doc.PaymentDueDate != nil {
		req.PaymentDueDate = doc.PaymentDueDate.Format("2006-01-02")
	}
	if doc.Establishment.Name != "" {
		req.Establishment = &establishmentPayload{
			Name:           doc.Establishment.Name,
			Address:        doc.Establishment.Address,
			PhoneNumber:    doc.Establishment.Phone,
			Email:          doc.Establishment.Email,
			MunicipalityID: doc.Establishment.MunicipalityID,
		}
	}
	for _, a := range doc.AllowanceCharges {
		req.AllowanceCharges = append(req.AllowanceCharges, allowanceChargePayload{
			ConceptType: a.ConceptType,
			IsSurcharge: a.IsSurcharge,
			Reason:      a.Reason,
			BaseAmount:  num(a.BaseAmount),
			Amount:      num(a.Amount),
		})
	}
	return req
}

func num(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// errorList aplana data.errors ({campo: "msg"} o {campo: ["msg", ...]}) en orden de campo.
func errorList(env envelope) []string {
	var out []string
	for _, field := range slices.Sorted(maps.Keys(env.Data.Errors)) {
		raw := env.Data.Errors[field]
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			for _, m := range many {
				out = append(out, field+": "+m)
			}
			continue
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			out = append(out, field+": "+one)
			continue
		}
		out = append(out, field+": "+strings.TrimSpace(string(raw)))
	}
	if len(out) == 0 && env.Message != "" {
		out = append(out, env.Message)
	}
	return out
}
