package entity

import (
	"fmt"
	"time"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
)

// Tipos de documento que consumen consecutivos.
const (
	DocumentTypeSalesInvoice = "SALES_INVOICE"
	DocumentTypeCreditNote   = "CREDIT_NOTE"
)

// RangeState estado derivado de un rango de numeración.
type RangeState string

const (
	RangeStateInactive  RangeState = "INACTIVE"
	RangeStateActive    RangeState = "ACTIVE"
	RangeStateExhausted RangeState = "EXHAUSTED"
	RangeStateExpired   RangeState = "EXPIRED"
)

// NumberingRange bloque de consecutivos autorizado para un tipo de documento y prefijo.
// CurrentConsecutive guarda el último número entregado y nunca disminuye.
// GatewayRangeID es el identificador del rango en el proveedor de facturación.
type NumberingRange struct {
	ID                 string
	DocumentType       string
	Prefix             string
	ResolutionNumber   string
	GatewayRangeID     int64
	RangeStart         *int64
	RangeEnd           *int64
	CurrentConsecutive int64
	ValidFrom          *time.Time
	ValidTo            *time.Time
	Active             bool
	Expired            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// StateAt calcula el estado del rango en el instante at.
// Sin ambos límites el rango aún no está activado.
func (r NumberingRange) StateAt(at time.Time) RangeState {
	if !r.Active || r.RangeStart == nil || r.RangeEnd == nil {
		return RangeStateInactive
	}
	if r.Expired || (r.ValidTo != nil && at.After(*r.ValidTo)) {
		return RangeStateExpired
	}
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return RangeStateInactive
	}
	if r.CurrentConsecutive >= *r.RangeEnd {
		return RangeStateExhausted
	}
	return RangeStateActive
}

// Reserve consume el siguiente consecutivo y lo devuelve.
// Un rango agotado, vencido o inactivo rechaza la reserva sin modificarse.
func (r *NumberingRange) Reserve(at time.Time) (int64, error) {
	switch r.StateAt(at) {
	case RangeStateActive:
	case RangeStateExhausted:
		return 0, fmt.Errorf("%w: %s%d", domain.ErrRangeExhausted, r.Prefix, *r.RangeEnd)
	case RangeStateExpired:
		return 0, domain.ErrRangeExpired
	default:
		return 0, domain.ErrRangeInactive
	}
	next := r.CurrentConsecutive + 1
	if next < *r.RangeStart {
		next = *r.RangeStart
	}
	r.CurrentConsecutive = next
	r.UpdatedAt = at
	return next, nil
}

// Available cantidad de números que aún puede entregar el rango.
func (r NumberingRange) Available() int64 {
	if r.RangeEnd == nil {
		return 0
	}
	if n := *r.RangeEnd - r.CurrentConsecutive; n > 0 {
		return n
	}
	return 0
}

// FormatNumber número completo con prefijo (ej: SETP990000001).
func (r NumberingRange) FormatNumber(n int64) string {
	return fmt.Sprintf("%s%d", r.Prefix, n)
}
