package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

var _ inventory.EventPublisher = (*NATSPublisher)(nil)

// Connect abre la conexión NATS con reconexión automática.
func Connect(url, name string, log zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats desconectado")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconectado")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	return nc, nil
}

// publisher lo cumple *nats.Conn.
type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publica "<prefijo>.<delivery|transfer>.finalized" por cada documento finalizado.
type NATSPublisher struct {
	conn   publisher
	prefix string
}

// NewNATSPublisher construye el publicador. prefix vacío usa "inventory.movements".
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return newPublisher(conn, prefix)
}

func newPublisher(conn publisher, prefix string) *NATSPublisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "inventory.movements"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// FinalizedLine delta aplicado por una línea.
type FinalizedLine struct {
	LineNumber             int             `json:"line_number"`
	ProductID              string          `json:"product_id"`
	SourceWarehouseID      string          `json:"source_warehouse_id"`
	DestinationWarehouseID string          `json:"destination_warehouse_id,omitempty"`
	RequestedQuantity      decimal.Decimal `json:"requested_quantity"`
	Quantity               decimal.Decimal `json:"quantity"`
}

// DocumentFinalizedEvent cuerpo del mensaje.
type DocumentFinalizedEvent struct {
	DocumentID  string          `json:"document_id"`
	Kind        string          `json:"kind"`
	Customer    string          `json:"customer,omitempty"`
	FinalizedAt time.Time       `json:"finalized_at"`
	FinalizedBy string          `json:"finalized_by,omitempty"`
	Lines       []FinalizedLine `json:"lines"`
}

// Subject devuelve el subject para un tipo de documento.
func (p *NATSPublisher) Subject(kind entity.DocumentKind) string {
	return p.prefix + "." + strings.ToLower(string(kind)) + ".finalized"
}

// DocumentFinalized publica el evento. Se llama después del commit.
func (p *NATSPublisher) DocumentFinalized(_ context.Context, doc *entity.MovementDocument) error {
	data, err := json.Marshal(NewDocumentFinalizedEvent(doc))
	if err != nil {
		return fmt.Errorf("events: serializar documento %s: %w", doc.ID, err)
	}
	if err := p.conn.Publish(p.Subject(doc.Kind), data); err != nil {
		return fmt.Errorf("events: publicar documento %s: %w", doc.ID, err)
	}
	return nil
}

// NewDocumentFinalizedEvent arma el evento; las líneas con cantidad real 0 se incluyen.
func NewDocumentFinalizedEvent(doc *entity.MovementDocument) DocumentFinalizedEvent {
	ev := DocumentFinalizedEvent{
		DocumentID:  doc.ID,
		Kind:        string(doc.Kind),
		Customer:    doc.Customer,
		FinalizedBy: doc.FinalizedBy,
		Lines:       make([]FinalizedLine, 0, len(doc.Lines)),
	}
	if doc.FinalizedAt != nil {
		ev.FinalizedAt = *doc.FinalizedAt
	}
	for _, l := range doc.Lines {
		line := FinalizedLine{
			LineNumber:        l.LineNumber,
			ProductID:         l.ProductID,
			SourceWarehouseID: l.SourceWarehouseID,
			RequestedQuantity: l.RequestedQuantity,
		}
		if doc.Kind == entity.DocumentKindTransfer {
			line.DestinationWarehouseID = doc.DestinationWarehouseID
		}
		if l.ActualQuantity != nil {
			line.Quantity = *l.ActualQuantity
		}
		ev.Lines = append(ev.Lines, line)
	}
	return ev
}
