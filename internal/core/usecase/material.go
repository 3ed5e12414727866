package usecase

import (
	"context"
	"time"

	"github.com/kirillkom/scan-resolver/internal/core/barcode"
	"github.com/kirillkom/scan-resolver/internal/core/domain"
	"github.com/kirillkom/scan-resolver/internal/core/ports"
)

const (
	notificationTitle = "read OK"

	subtitleNoMatch    = "0 dictionary rows, flagged for review"
	subtitleFetchError = "dictionary fetch failed, flagged for review"
	subtitleUnknown    = "raw payload saved"
	subtitleHit        = "dictionary hit"
)

// MaterialBuilder resolves a raw payload into a finished Material. Every path
// ends in a fully populated Material; lookup failures only change DictStatus.
type MaterialBuilder struct {
	dict  ports.Dictionary
	newID func() string
}

func NewMaterialBuilder(dict ports.Dictionary, newID func() string) *MaterialBuilder {
	return &MaterialBuilder{dict: dict, newID: newID}
}

func (b *MaterialBuilder) Build(ctx context.Context, raw string, scannedAt time.Time) domain.Material {
	m := domain.Material{
		ID:         b.newID(),
		Raw:        raw,
		DictStatus: domain.DictStatusUnknown,
		ScannedAt:  scannedAt,
	}

	code := barcode.Parse(raw)
	switch code.Kind {
	case domain.CodeJAN13:
		jan := code.Value
		m.JAN13 = &jan
		applyOutcome(&m, b.dict.LookupByJAN13(ctx, jan))

	case domain.CodeGTIN14:
		gtin := code.Value
		m.GTIN14 = &gtin
		hop := b.dict.LookupJANFromGTIN14(ctx, gtin)
		if hop.Status != domain.DictStatusHit {
			m.DictStatus = domain.DictStatusNoMatch
			m.DictError = hop.Error
			return m
		}
		jan := hop.JAN13
		m.JAN13 = &jan
		applyOutcome(&m, b.dict.LookupByJAN13(ctx, jan))
	}
	return m
}

func applyOutcome(m *domain.Material, out domain.LookupOutcome) {
	m.DictStatus = out.Status
	switch out.Status {
	case domain.DictStatusHit:
		m.DictionaryRecord = out.Record
	case domain.DictStatusFetchError:
		m.DictError = out.Error
	}
}

// NotificationFor builds the payload shown to the operator after a read.
func NotificationFor(m domain.Material) domain.Notification {
	n := domain.Notification{Title: notificationTitle}
	switch m.DictStatus {
	case domain.DictStatusHit:
		n.Subtitle = m.ProductName
		if n.Subtitle == "" {
			n.Subtitle = subtitleHit
		}
		if m.TotalReimbursementPriceYen > 0 {
			price := m.TotalReimbursementPriceYen
			n.Price = &price
		}
	case domain.DictStatusNoMatch:
		n.Subtitle = subtitleNoMatch
	case domain.DictStatusFetchError:
		n.Subtitle = subtitleFetchError
	default:
		n.Subtitle = subtitleUnknown
	}
	return n
}
