// Package inventory contiene las reglas puras del motor de movimientos:
// validación de borradores y planificación de la finalización por tipo de documento.
// No accede a repositorios; el caso de uso le entrega el documento y el stock leído.
package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// Delta es un cambio de cantidad sobre una entrada del libro de stock.
type Delta struct {
	Key        entity.StockKey
	Quantity   decimal.Decimal // negativo = salida
	Type       entity.StockMovementType
	LineNumber int
}

// KindRule concentra lo que difiere entre entregas y traslados; la máquina de estados es única.
type KindRule interface {
	Kind() entity.DocumentKind
	// ValidateMetadata valida los metadatos propios del tipo (cliente, bodegas).
	ValidateMetadata(doc *entity.MovementDocument) error
	// LineIdentity devuelve la llave que debe ser única entre las líneas del documento.
	LineIdentity(doc *entity.MovementDocument, line entity.MovementLine) string
	// SourceOf devuelve la bodega de la que sale el stock de la línea.
	SourceOf(doc *entity.MovementDocument, line entity.MovementLine) string
	// Deltas devuelve los cambios al libro para una cantidad real de la línea.
	Deltas(doc *entity.MovementDocument, line entity.MovementLine, actual decimal.Decimal) []Delta
}

// RuleFor devuelve la regla del tipo indicado.
func RuleFor(kind entity.DocumentKind) (KindRule, error) {
	switch kind {
	case entity.DocumentKindDelivery:
		return deliveryRule{}, nil
	case entity.DocumentKindTransfer:
		return transferRule{}, nil
	}
	return nil, domain.Validation(fmt.Sprintf("tipo de documento desconocido: %q", kind))
}

type deliveryRule struct{}

func (deliveryRule) Kind() entity.DocumentKind { return entity.DocumentKindDelivery }

func (deliveryRule) ValidateMetadata(doc *entity.MovementDocument) error {
	if doc.Customer == "" {
		return domain.Validation("customer es requerido")
	}
	if doc.SourceWarehouseID != "" || doc.DestinationWarehouseID != "" {
		return domain.Validation("una entrega no lleva bodegas a nivel de documento")
	}
	for _, l := range doc.Lines {
		if l.SourceWarehouseID == "" {
			return &domain.MovementError{Kind: domain.ErrValidation, LineNumber: l.LineNumber, Reason: "warehouse_id es requerido"}
		}
	}
	return nil
}

func (deliveryRule) LineIdentity(_ *entity.MovementDocument, line entity.MovementLine) string {
	return line.ProductID + "/" + line.SourceWarehouseID
}

func (deliveryRule) SourceOf(_ *entity.MovementDocument, line entity.MovementLine) string {
	return line.SourceWarehouseID
}

// Una entrega solo descuenta: el stock sale de la red de bodegas.
func (deliveryRule) Deltas(_ *entity.MovementDocument, line entity.MovementLine, actual decimal.Decimal) []Delta {
	return []Delta{{
		Key:        entity.StockKey{ProductID: line.ProductID, WarehouseID: line.SourceWarehouseID},
		Quantity:   actual.Neg(),
		Type:       entity.StockMovementDeliveryOut,
		LineNumber: line.LineNumber,
	}}
}

type transferRule struct{}

func (transferRule) Kind() entity.DocumentKind { return entity.DocumentKindTransfer }

func (transferRule) ValidateMetadata(doc *entity.MovementDocument) error {
	if doc.SourceWarehouseID == "" || doc.DestinationWarehouseID == "" {
		return domain.Validation("from_warehouse_id y to_warehouse_id son requeridos")
	}
	if doc.SourceWarehouseID == doc.DestinationWarehouseID {
		return &domain.MovementError{
			Kind:        domain.ErrValidation,
			WarehouseID: doc.SourceWarehouseID,
			Reason:      "la bodega origen y destino deben ser distintas",
		}
	}
	if doc.Customer != "" {
		return domain.Validation("un traslado no lleva cliente")
	}
	return nil
}

func (transferRule) LineIdentity(_ *entity.MovementDocument, line entity.MovementLine) string {
	return line.ProductID
}

func (transferRule) SourceOf(doc *entity.MovementDocument, _ entity.MovementLine) string {
	return doc.SourceWarehouseID
}

// Un traslado descuenta en origen y suma lo mismo en destino (suma total constante).
func (transferRule) Deltas(doc *entity.MovementDocument, line entity.MovementLine, actual decimal.Decimal) []Delta {
	return []Delta{
		{
			Key:        entity.StockKey{ProductID: line.ProductID, WarehouseID: doc.SourceWarehouseID},
			Quantity:   actual.Neg(),
			Type:       entity.StockMovementTransferOut,
			LineNumber: line.LineNumber,
		},
		{
			Key:        entity.StockKey{ProductID: line.ProductID, WarehouseID: doc.DestinationWarehouseID},
			Quantity:   actual,
			Type:       entity.StockMovementTransferIn,
			LineNumber: line.LineNumber,
		},
	}
}

// NormalizeCustomer recorta espacios y normaliza a NFC para que "José" se guarde igual
// venga compuesto o descompuesto desde el cliente HTTP.
func NormalizeCustomer(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// IsWholeQuantity indica si q es un entero (el stock se cuenta en unidades).
func IsWholeQuantity(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(0))
}

// PrepareDraft numera las líneas, las asocia al documento y valida el borrador completo.
// El documento debe traer Kind; Status queda en DRAFT.
func PrepareDraft(doc *entity.MovementDocument) (KindRule, error) {
	rule, err := RuleFor(doc.Kind)
	if err != nil {
		return nil, err
	}
	doc.Status = entity.DocumentStatusDraft
	doc.Customer = NormalizeCustomer(doc.Customer)
	if len(doc.Lines) == 0 {
		return nil, domain.Validation("el documento requiere al menos una línea")
	}
	for i := range doc.Lines {
		l := &doc.Lines[i]
		l.DocumentID = doc.ID
		l.LineNumber = i + 1
		l.ActualQuantity = nil
		if rule.Kind() == entity.DocumentKindTransfer {
			l.SourceWarehouseID = doc.SourceWarehouseID
		}
	}
	if err := rule.ValidateMetadata(doc); err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(doc.Lines))
	for _, l := range doc.Lines {
		if l.ProductID == "" {
			return nil, &domain.MovementError{Kind: domain.ErrValidation, LineNumber: l.LineNumber, Reason: "product_id es requerido"}
		}
		if !l.RequestedQuantity.IsPositive() || !IsWholeQuantity(l.RequestedQuantity) {
			q := l.RequestedQuantity
			return nil, &domain.MovementError{
				Kind:       domain.ErrInvalidQuantity,
				LineNumber: l.LineNumber,
				ProductID:  l.ProductID,
				Requested:  &q,
				Reason:     "la cantidad solicitada debe ser un entero positivo",
			}
		}
		id := rule.LineIdentity(doc, l)
		if prev, dup := seen[id]; dup {
			return nil, &domain.MovementError{
				Kind:        domain.ErrValidation,
				LineNumber:  l.LineNumber,
				ProductID:   l.ProductID,
				WarehouseID: rule.SourceOf(doc, l),
				Reason:      fmt.Sprintf("producto duplicado (ya está en la línea %d)", prev),
			}
		}
		seen[id] = l.LineNumber
	}
	return rule, nil
}

// RequiredBySource suma por (producto, bodega origen) lo que el documento necesita sacar.
// qty devuelve la cantidad a considerar por línea (solicitada al crear, real al finalizar).
func RequiredBySource(rule KindRule, doc *entity.MovementDocument, qty func(entity.MovementLine) decimal.Decimal) map[entity.StockKey]decimal.Decimal {
	out := make(map[entity.StockKey]decimal.Decimal, len(doc.Lines))
	for _, l := range doc.Lines {
		k := entity.StockKey{ProductID: l.ProductID, WarehouseID: rule.SourceOf(doc, l)}
		out[k] = out[k].Add(qty(l))
	}
	return out
}

// CheckAvailability compara lo requerido por línea contra el disponible y devuelve
// ErrInsufficientStock con la primera línea (en orden) que no alcanza.
func CheckAvailability(rule KindRule, doc *entity.MovementDocument, qty func(entity.MovementLine) decimal.Decimal, available map[entity.StockKey]decimal.Decimal) error {
	used := make(map[entity.StockKey]decimal.Decimal, len(doc.Lines))
	for _, l := range doc.Lines {
		q := qty(l)
		if q.IsZero() {
			continue
		}
		k := entity.StockKey{ProductID: l.ProductID, WarehouseID: rule.SourceOf(doc, l)}
		used[k] = used[k].Add(q)
		if used[k].GreaterThan(available[k]) {
			e := domain.InsufficientStock(k.ProductID, k.WarehouseID, q, available[k].Sub(used[k]).Add(q))
			e.DocumentID = doc.ID
			e.LineNumber = l.LineNumber
			return e
		}
	}
	return nil
}

// FinalizePlan es el resultado de validar una finalización antes de tocar el libro.
type FinalizePlan struct {
	Rule     KindRule
	Document *entity.MovementDocument
	Actuals  []entity.LineActual // una por línea, ordenadas por número
	Deltas   []Delta             // sin deltas en cero
}

// Actual devuelve la cantidad real planificada para la línea.
func (p *FinalizePlan) Actual(line entity.MovementLine) decimal.Decimal {
	for _, a := range p.Actuals {
		if a.LineNumber == line.LineNumber {
			return a.Quantity
		}
	}
	return decimal.Zero
}

// LockKeys devuelve todas las entradas tocadas (origen y destino), ordenadas y sin repetir.
func (p *FinalizePlan) LockKeys() []entity.StockKey {
	keys := make([]entity.StockKey, 0, len(p.Document.Lines)*2)
	for _, l := range p.Document.Lines {
		for _, d := range p.Rule.Deltas(p.Document, l, decimal.Zero) {
			keys = append(keys, d.Key)
		}
	}
	return entity.SortedUniqueKeys(keys)
}

// CheckAvailability revalida contra stock leído con los bloqueos tomados.
func (p *FinalizePlan) CheckAvailability(available map[entity.StockKey]decimal.Decimal) error {
	return CheckAvailability(p.Rule, p.Document, p.Actual, available)
}

// PlanFinalize valida estado y cantidades reales; no lee ni escribe stock.
// Se exige exactamente una cantidad real por línea.
func PlanFinalize(doc *entity.MovementDocument, actuals []entity.LineActual) (*FinalizePlan, error) {
	rule, err := RuleFor(doc.Kind)
	if err != nil {
		return nil, err
	}
	if doc.IsFinalized() {
		return nil, &domain.MovementError{Kind: domain.ErrAlreadyFinalized, DocumentID: doc.ID}
	}
	if doc.Status != entity.DocumentStatusDraft {
		return nil, &domain.MovementError{Kind: domain.ErrValidation, DocumentID: doc.ID, Reason: fmt.Sprintf("estado inválido %q", doc.Status)}
	}

	byLine := make(map[int]decimal.Decimal, len(actuals))
	for _, a := range actuals {
		line, ok := doc.Line(a.LineNumber)
		if !ok {
			return nil, &domain.MovementError{Kind: domain.ErrValidation, DocumentID: doc.ID, LineNumber: a.LineNumber, Reason: "la línea no existe en el documento"}
		}
		if _, dup := byLine[a.LineNumber]; dup {
			return nil, &domain.MovementError{Kind: domain.ErrValidation, DocumentID: doc.ID, LineNumber: a.LineNumber, Reason: "cantidad real repetida para la línea"}
		}
		if a.Quantity.IsNegative() || !IsWholeQuantity(a.Quantity) || a.Quantity.GreaterThan(line.RequestedQuantity) {
			q := a.Quantity
			req := line.RequestedQuantity
			return nil, &domain.MovementError{
				Kind:       domain.ErrInvalidQuantity,
				DocumentID: doc.ID,
				LineNumber: a.LineNumber,
				ProductID:  line.ProductID,
				Requested:  &req,
				Reason:     fmt.Sprintf("la cantidad real %s debe ser un entero entre 0 y la cantidad solicitada", q.String()),
			}
		}
		byLine[a.LineNumber] = a.Quantity
	}

	plan := &FinalizePlan{Rule: rule, Document: doc, Actuals: make([]entity.LineActual, 0, len(doc.Lines))}
	for _, l := range doc.Lines {
		q, ok := byLine[l.LineNumber]
		if !ok {
			return nil, &domain.MovementError{Kind: domain.ErrValidation, DocumentID: doc.ID, LineNumber: l.LineNumber, Reason: "falta la cantidad real de la línea"}
		}
		plan.Actuals = append(plan.Actuals, entity.LineActual{LineNumber: l.LineNumber, Quantity: q})
		if q.IsZero() {
			continue
		}
		plan.Deltas = append(plan.Deltas, rule.Deltas(doc, l, q)...)
	}
	sort.SliceStable(plan.Actuals, func(i, j int) bool { return plan.Actuals[i].LineNumber < plan.Actuals[j].LineNumber })
	return plan, nil
}
