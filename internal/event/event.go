// Package event provides the in-process publish/subscribe bus that fans
// domain events out to notification and real-time side effects. The bus is
// an injected dependency, never a package-level singleton, so lifecycle
// and test doubles stay under the caller's control.
package event

import "github.com/shopspring/decimal"

// Topic identifies a class of domain event.
type Topic string

const (
	TopicOrderCreated       Topic = "order:created"
	TopicOrderStatusUpdated Topic = "order:updatedStatus"
	TopicProductCreated     Topic = "product:created"
	TopicCollectionCreated  Topic = "collection:created"
)

// Event is a domain event deliverable through the Bus. Payloads carry plain
// identifiers and values rather than domain structs, keeping subscribers
// decoupled from the packages that publish.
type Event interface {
	EventTopic() Topic
}

// OrderCreated is published when checkout converts a cart into an order.
type OrderCreated struct {
	OrderID     string
	UserID      string
	TotalAmount decimal.Decimal
	ItemCount   int
}

func (OrderCreated) EventTopic() Topic { return TopicOrderCreated }

// OrderStatusUpdated is published on every order status transition.
type OrderStatusUpdated struct {
	OrderID string
	UserID  string
	Status  string
}

func (OrderStatusUpdated) EventTopic() Topic { return TopicOrderStatusUpdated }

// ProductCreated is published when a seller adds a product to the catalog.
type ProductCreated struct {
	ProductID string
	SellerID  string
	Name      string
}

func (ProductCreated) EventTopic() Topic { return TopicProductCreated }

// CollectionCreated is published when a seller creates a collection.
type CollectionCreated struct {
	CollectionID string
	SellerID     string
	Name         string
}

func (CollectionCreated) EventTopic() Topic { return TopicCollectionCreated }

// Publisher is the capability handed to components that emit events.
type Publisher interface {
	Publish(e Event)
}
