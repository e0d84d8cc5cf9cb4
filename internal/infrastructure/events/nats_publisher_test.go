package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.subject = subj
	f.data = data
	return f.err
}

func finalizedTransfer() *entity.MovementDocument {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	q := decimal.NewFromInt(30)
	return &entity.MovementDocument{
		ID: "t1", Kind: entity.DocumentKindTransfer, Status: entity.DocumentStatusFinalized,
		SourceWarehouseID: "A", DestinationWarehouseID: "B",
		FinalizedAt: &at, FinalizedBy: "u1",
		Lines: []entity.MovementLine{{
			LineNumber: 1, ProductID: "p1", SourceWarehouseID: "A",
			RequestedQuantity: decimal.NewFromInt(30), ActualQuantity: &q,
		}},
	}
}

func TestSubject(t *testing.T) {
	p := newPublisher(&fakeConn{}, "")
	assert.Equal(t, "inventory.movements.delivery.finalized", p.Subject(entity.DocumentKindDelivery))

	p = newPublisher(&fakeConn{}, "acme.stock.")
	assert.Equal(t, "acme.stock.transfer.finalized", p.Subject(entity.DocumentKindTransfer))
}

func TestDocumentFinalized_Publica(t *testing.T) {
	conn := &fakeConn{}
	p := newPublisher(conn, "inventory.movements")

	require.NoError(t, p.DocumentFinalized(context.Background(), finalizedTransfer()))
	assert.Equal(t, "inventory.movements.transfer.finalized", conn.subject)

	var ev DocumentFinalizedEvent
	require.NoError(t, json.Unmarshal(conn.data, &ev))
	assert.Equal(t, "t1", ev.DocumentID)
	assert.Equal(t, "TRANSFER", ev.Kind)
	require.Len(t, ev.Lines, 1)
	assert.Equal(t, "B", ev.Lines[0].DestinationWarehouseID)
	assert.True(t, ev.Lines[0].Quantity.Equal(decimal.NewFromInt(30)))
}

func TestDocumentFinalized_ErrorDeConexion(t *testing.T) {
	p := newPublisher(&fakeConn{err: errors.New("sin conexión")}, "")
	err := p.DocumentFinalized(context.Background(), finalizedTransfer())
	assert.Error(t, err)
}
