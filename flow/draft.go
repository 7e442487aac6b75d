package flow

import (
	"github.com/samber/lo"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

// OrderDraft is the accumulating purchase intent, mutated one field group
// per step. Invariant: TotalAmount == Subtotal + DeliveryCost at every
// persisted snapshot; Recalculate enforces it after every item or delivery
// mutation.
type OrderDraft struct {
	Items         []entity.OrderItem     `json:"items" bson:"items"`
	Subtotal      int64                  `json:"subtotal" bson:"subtotal"`
	DeliveryCost  int64                  `json:"delivery_cost" bson:"delivery_cost"`
	TotalAmount   int64                  `json:"total_amount" bson:"total_amount"`
	Customer      entity.CustomerInfo    `json:"customer" bson:"customer"`
	PaymentMethod entity.PaymentProvider `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	Note          string                 `json:"note,omitempty" bson:"note,omitempty"`
	Metadata      Metadata               `json:"metadata" bson:"metadata"`
}

// NewDraft builds the minimal recoverable draft anchored to one product:
// quantity 1, empty customer fields.
func NewDraft(product entity.ProductInfo) *OrderDraft {
	d := &OrderDraft{
		Items: []entity.OrderItem{{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  1,
		}},
		Metadata: NewMetadata(),
	}
	d.Recalculate()
	return d
}

// Recalculate restores the amount invariant from the item lines.
func (d *OrderDraft) Recalculate() {
	for i := range d.Items {
		d.Items[i].LineTotal = d.Items[i].UnitPrice * int64(d.Items[i].Quantity)
	}
	d.Subtotal = lo.SumBy(d.Items, func(it entity.OrderItem) int64 { return it.LineTotal })
	d.TotalAmount = d.Subtotal + d.DeliveryCost
}

// SetQuantity updates the quantity of the primary (first) item.
func (d *OrderDraft) SetQuantity(qty int) {
	if len(d.Items) == 0 {
		return
	}
	d.Items[0].Quantity = qty
	d.Recalculate()
}

// AddItem appends a product line, merging with an existing line for the
// same product.
func (d *OrderDraft) AddItem(product entity.ProductInfo, qty int) {
	for i := range d.Items {
		if d.Items[i].ProductID == product.ID {
			d.Items[i].Quantity += qty
			d.Recalculate()
			return
		}
	}
	d.Items = append(d.Items, entity.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  qty,
	})
	d.Recalculate()
}

// SetDeliveryCost assigns the delivery zone cost and restores the invariant.
func (d *OrderDraft) SetDeliveryCost(cost int64) {
	d.DeliveryCost = cost
	d.Recalculate()
}

// Complete reports whether the draft has everything payment init requires.
func (d *OrderDraft) Complete() bool {
	return d.Customer.FirstName != "" &&
		d.Customer.Phone != "" &&
		d.Customer.City != "" &&
		d.Customer.Address != "" &&
		len(d.Items) > 0 &&
		d.TotalAmount > 0
}

// Clone returns a deep copy. Materialization copies the draft so the Order
// record can never alias live session state.
func (d *OrderDraft) Clone() *OrderDraft {
	cp := *d
	cp.Items = make([]entity.OrderItem, len(d.Items))
	copy(cp.Items, d.Items)
	cp.Metadata.Completed = make(CompletedSteps, len(d.Metadata.Completed))
	for k, v := range d.Metadata.Completed {
		cp.Metadata.Completed[k] = v
	}
	cp.Metadata.Flags = make(map[string]any, len(d.Metadata.Flags))
	for k, v := range d.Metadata.Flags {
		cp.Metadata.Flags[k] = v
	}
	return &cp
}
